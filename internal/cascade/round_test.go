package cascade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/cascade/internal/grammar"
	"github.com/samcharles93/cascade/internal/prompt"
)

func indices(steps []Step) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.Index()
	}
	return out
}

func TestRoundGuidanceThenInference(t *testing.T) {
	t.Parallel()

	r := NewRound("Describe the sky.")
	r.AddGuidanceStep(DefaultStepConfig(), "X")
	r.AddInferenceStep(DefaultStepConfig())

	backend := &testBackend{replies: []reply{{text: " Y", stopWord: "Done."}}}
	req := newRequest()
	if err := r.RunAllSteps(quietContext(), backend, req); err != nil {
		t.Fatalf("RunAllSteps: %v", err)
	}

	got, err := r.DisplayOutcome()
	if err != nil || got != "X Y" {
		t.Fatalf("DisplayOutcome = %q, %v; want %q", got, err, "X Y")
	}

	if c := backend.calls[0]; c.kind != "prime" || c.hasPrefix {
		t.Fatalf("guidance step should prime with no prefix: %+v", c)
	}
	if c := backend.calls[1]; c.kind != "complete" || c.prefix != "X" {
		t.Fatalf("inference step should see the guidance text as prefix: %+v", c)
	}

	want := []prompt.Message{
		{Role: prompt.RoleUser, Content: "Describe the sky."},
		{Role: prompt.RoleAssistant, Content: "X Y"},
	}
	if diff := cmp.Diff(want, req.Transcript.Messages()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	if res, ok, err := r.PrimitiveResult(); err != nil || !ok || res != "Y" {
		t.Fatalf("PrimitiveResult = %q, %v, %v", res, ok, err)
	}
}

func TestRoundGenerationPrefix(t *testing.T) {
	t.Parallel()

	labelled := DefaultStepConfig()
	labelled.UseCounter = true
	labelled.Prefix = "Reason:"

	cases := []struct {
		name      string
		separator rune
		want      string
	}{
		{"space", ' ', "1 Fact one. 2 Reason:"},
		{"newline", '\n', "1 Fact one.\n2 Reason:"},
		{"none", 0, "1 Fact one.2 Reason:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			first := DefaultStepConfig()
			first.UseCounter = true
			r := NewRound("task").SetSeparator(tc.separator)
			r.AddGuidanceStep(first, " Fact one.")
			next := r.AddInferenceStep(labelled)

			backend := &testBackend{}
			if err := r.RunNextStep(quietContext(), backend, newRequest()); err != nil {
				t.Fatalf("RunNextStep: %v", err)
			}
			got, ok, err := r.GenerationPrefix(next)
			if err != nil || !ok || got != tc.want {
				t.Fatalf("GenerationPrefix = %q, %v, %v; want %q", got, ok, err, tc.want)
			}
		})
	}

	empty := NewRound("task")
	step := empty.AddInferenceStep(DefaultStepConfig())
	if got, ok, err := empty.GenerationPrefix(step); ok || got != "" || err != nil {
		t.Fatalf("expected no prefix, got %q, %v, %v", got, ok, err)
	}
}

func TestRoundRetryTargetsSameStep(t *testing.T) {
	t.Parallel()

	counted := DefaultStepConfig()
	counted.Grammar = grammar.NewInteger()
	r := NewRound("Count.")
	r.AddGuidanceStep(DefaultStepConfig(), "I count")
	r.AddInferenceStep(counted)
	r.AddGuidanceStep(DefaultStepConfig(), "sheep.")

	backend := &testBackend{replies: []reply{
		{err: errors.New("connection reset")},
		{text: "many", stopWord: "Done."},
		{text: " 7", stopWord: "Done."},
	}}
	if err := r.RunAllSteps(quietContext(), backend, newRequest()); err != nil {
		t.Fatalf("RunAllSteps: %v", err)
	}

	if diff := cmp.Diff([]int{1, 2, 3}, indices(r.Resolved())); diff != "" {
		t.Fatalf("resolved order mismatch (-want +got):\n%s", diff)
	}
	if backend.count("complete") != 3 {
		t.Fatalf("expected 3 completion attempts, got %d", backend.count("complete"))
	}
	for _, c := range backend.calls {
		if c.kind == "complete" && c.prefix != "I count" {
			t.Fatalf("every retry should see the same prefix, got %q", c.prefix)
		}
	}
	if got, _ := r.DisplayOutcome(); got != "I count 7 sheep." {
		t.Fatalf("DisplayOutcome = %q", got)
	}
}

func TestRoundExhaustionRollsBack(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend unavailable")
	r := NewRound("Plan.")
	r.AddGuidanceStep(DefaultStepConfig(), "A")
	r.AddInferenceStep(DefaultStepConfig())
	r.AddInferenceStep(DefaultStepConfig())

	replies := make([]reply, 10)
	for i := range replies {
		replies[i] = reply{err: boom}
	}
	backend := &testBackend{replies: replies}
	req := newRequest()

	err := r.RunAllSteps(quietContext(), backend, req)
	if !errors.Is(err, ErrRoundExhausted) {
		t.Fatalf("expected ErrRoundExhausted, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected the last backend error to be wrapped, got %v", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Failures != 4 || exhausted.Round != "Plan." {
		t.Fatalf("unexpected exhaustion details: %#v", err)
	}

	if got := backend.count("complete"); got != 4 {
		t.Fatalf("expected 4 attempts before abort, got %d", got)
	}
	if len(r.Resolved()) != 0 {
		t.Fatalf("resolved queue should be empty after rollback, got %v", indices(r.Resolved()))
	}
	if diff := cmp.Diff([]int{1, 2, 3}, indices(r.Pending())); diff != "" {
		t.Fatalf("pending order mismatch (-want +got):\n%s", diff)
	}
	if req.Transcript.Len() != 1 {
		t.Fatalf("an exhausted round must not write its outcome, transcript has %d messages", req.Transcript.Len())
	}
}

func TestRoundMaxFailuresConfigurable(t *testing.T) {
	t.Parallel()

	r := NewRound("task").SetMaxFailures(0)
	r.AddInferenceStep(DefaultStepConfig())
	backend := &testBackend{replies: []reply{{err: errors.New("nope")}, {text: "ok", stopWord: "Done."}}}

	if err := r.RunAllSteps(quietContext(), backend, newRequest()); !errors.Is(err, ErrRoundExhausted) {
		t.Fatalf("expected abort after the first failure, got %v", err)
	}
	if backend.count("complete") != 1 {
		t.Fatalf("expected a single attempt, got %d", backend.count("complete"))
	}
}

func TestRoundStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(quietContext())
	cancel()

	r := NewRound("task")
	r.AddGuidanceStep(DefaultStepConfig(), "A")
	r.AddInferenceStep(DefaultStepConfig())
	backend := &testBackend{}

	err := r.RunAllSteps(ctx, backend, newRequest())
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrRoundExhausted) {
		t.Fatalf("expected context cancellation without exhaustion, got %v", err)
	}
	if backend.count("complete") != 1 {
		t.Fatalf("cancelled round should not retry, got %d attempts", backend.count("complete"))
	}
	if diff := cmp.Diff([]int{1, 2}, indices(r.Pending())); diff != "" {
		t.Fatalf("pending order mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundCacheNextStep(t *testing.T) {
	t.Parallel()

	r := NewRound("task")
	r.AddGuidanceStep(DefaultStepConfig(), "Fixed")
	r.AddInferenceStep(DefaultStepConfig())
	backend := &testBackend{}
	ctx := quietContext()

	if err := r.CacheNextStep(ctx, backend, newRequest()); err != nil {
		t.Fatalf("CacheNextStep: %v", err)
	}
	if backend.count("prime") != 1 || backend.count("complete") != 0 {
		t.Fatalf("unexpected backend calls: %+v", backend.calls)
	}
	if diff := cmp.Diff([]int{1}, indices(r.Resolved())); diff != "" {
		t.Fatalf("resolved mismatch (-want +got):\n%s", diff)
	}

	backend.primeErr = errors.New("cache full")
	if err := r.CacheNextStep(ctx, backend, newRequest()); err == nil {
		t.Fatal("expected prime error")
	}
	if diff := cmp.Diff([]int{2}, indices(r.Pending())); diff != "" {
		t.Fatalf("failed step should return to pending (-want +got):\n%s", diff)
	}
}

func TestRoundStepQueueErrors(t *testing.T) {
	t.Parallel()

	r := NewRound("task")
	if err := r.RunNextStep(quietContext(), &testBackend{}, newRequest()); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("RunNextStep on empty round: %v", err)
	}
	if _, err := r.LastStep(); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("LastStep on empty round: %v", err)
	}
	if err := r.DropLastStep(); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("DropLastStep on empty round: %v", err)
	}

	r.AddGuidanceStep(DefaultStepConfig(), "A")
	r.AddGuidanceStep(DefaultStepConfig(), "B")
	ctx := quietContext()
	for range 2 {
		if err := r.RunNextStep(ctx, &testBackend{}, newRequest()); err != nil {
			t.Fatalf("RunNextStep: %v", err)
		}
	}
	last, err := r.LastStep()
	if err != nil || last.Index() != 2 {
		t.Fatalf("LastStep = %v, %v", last, err)
	}
	if err := r.DropLastStep(); err != nil {
		t.Fatalf("DropLastStep: %v", err)
	}
	if got, _ := r.DisplayOutcome(); got != "A" {
		t.Fatalf("DisplayOutcome after drop = %q", got)
	}
}

func TestRoundString(t *testing.T) {
	t.Parallel()

	r := NewRound("Name a colour.")
	r.AddGuidanceStep(DefaultStepConfig(), "Blue")
	r.AddInferenceStep(DefaultStepConfig())
	if err := r.RunNextStep(quietContext(), &testBackend{}, newRequest()); err != nil {
		t.Fatalf("RunNextStep: %v", err)
	}

	out := r.String()
	for _, want := range []string{"Name a colour.", "pending steps", "resolved steps", "'Blue'", "'No outcome'"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in rendering:\n%s", want, out)
		}
	}
}

func TestRoundStepWithoutSentinelsClearsStops(t *testing.T) {
	t.Parallel()

	open := DefaultStepConfig()
	open.DoneSentinel = ""

	r := NewRound("Describe.")
	r.AddInferenceStep(DefaultStepConfig())
	r.AddInferenceStep(open)

	backend := &testBackend{replies: []reply{{text: " a", stopWord: "Done."}, {text: " b"}}}
	if err := r.RunAllSteps(quietContext(), backend, newRequest()); err != nil {
		t.Fatalf("RunAllSteps: %v", err)
	}

	first, second := backend.calls[0], backend.calls[1]
	if !first.required || len(first.stops) != 1 || first.stops[0] != "Done." {
		t.Fatalf("first step should require its done sentinel: %+v", first)
	}
	if second.required || len(second.stops) != 0 {
		t.Fatalf("step without sentinels inherited stops %v (required %v)", second.stops, second.required)
	}
	if strings.Contains(second.grammar, "Done.") {
		t.Fatalf("grammar should not mention a done sentinel: %q", second.grammar)
	}
	if got, err := r.DisplayOutcome(); err != nil || got != "a b" {
		t.Fatalf("DisplayOutcome = %q, %v", got, err)
	}
}

func TestRoundRollbackDiscardsOutputs(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend unavailable")
	r := NewRound("Plan.")
	r.AddInferenceStep(DefaultStepConfig())
	r.AddInferenceStep(DefaultStepConfig())

	backend := &testBackend{replies: []reply{
		{text: "kept", stopWord: "Done."},
		{err: boom}, {err: boom}, {err: boom}, {err: boom},
	}}
	if err := r.RunAllSteps(quietContext(), backend, newRequest()); !errors.Is(err, ErrRoundExhausted) {
		t.Fatalf("expected ErrRoundExhausted, got %v", err)
	}

	step := r.Pending()[0].(*InferenceStep)
	if out, ok := step.Output(); ok || out != "" {
		t.Fatalf("rolled back step kept output %q", out)
	}
	if strings.Contains(r.String(), "kept") {
		t.Fatalf("rendering shows discarded output:\n%s", r.String())
	}
}

func TestRoundRunsOnce(t *testing.T) {
	t.Parallel()

	r := NewRound("Name a colour.")
	r.AddInferenceStep(DefaultStepConfig())
	backend := &testBackend{replies: []reply{{text: "red", stopWord: "Done."}}}
	req := newRequest()

	for range 2 {
		if err := r.RunAllSteps(quietContext(), backend, req); err != nil {
			t.Fatalf("RunAllSteps: %v", err)
		}
	}
	if len(backend.calls) != 1 {
		t.Fatalf("resolved round should not call the backend again, got %d calls", len(backend.calls))
	}
	want := []prompt.Message{
		{Role: prompt.RoleUser, Content: "Name a colour."},
		{Role: prompt.RoleAssistant, Content: "red"},
	}
	if diff := cmp.Diff(want, req.Transcript.Messages()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}
