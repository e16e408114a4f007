package cascade

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
)

// Round runs a task's steps in order. Every step sits in exactly one of the
// pending and resolved queues.
type Round struct {
	Task string
	// Separator joins step outcomes; 0 joins them directly.
	Separator rune
	// MaxFailures is how many failed attempts RunAllSteps tolerates before
	// rolling back.
	MaxFailures int

	pending  []Step
	resolved []Step
}

func NewRound(task string) *Round {
	return &Round{
		Task:        task,
		Separator:   ' ',
		MaxFailures: DefaultMaxFailures,
	}
}

func (r *Round) SetSeparator(sep rune) *Round {
	r.Separator = sep
	return r
}

func (r *Round) SetMaxFailures(n int) *Round {
	r.MaxFailures = n
	return r
}

// AddInferenceStep appends a step. Its index is the pending queue length
// after the append.
func (r *Round) AddInferenceStep(cfg StepConfig) *InferenceStep {
	step := newInferenceStep(cfg, len(r.pending)+1)
	r.pending = append(r.pending, step)
	return step
}

func (r *Round) AddGuidanceStep(cfg StepConfig, content string) *GuidanceStep {
	step := newGuidanceStep(cfg, len(r.pending)+1, content)
	r.pending = append(r.pending, step)
	return step
}

func (r *Round) Pending() []Step  { return slices.Clone(r.pending) }
func (r *Round) Resolved() []Step { return slices.Clone(r.resolved) }

func (r *Round) join(sb *strings.Builder, s string) {
	if sb.Len() > 0 && r.Separator != 0 {
		sb.WriteRune(r.Separator)
	}
	sb.WriteString(s)
}

// GenerationPrefix joins the outcomes of all resolved steps followed by the
// display prefix of step. It reports false when the result is empty.
func (r *Round) GenerationPrefix(step Step) (string, bool, error) {
	var sb strings.Builder
	for _, s := range r.resolved {
		out, err := s.DisplayOutcome()
		if err != nil {
			return "", false, err
		}
		r.join(&sb, out)
	}
	if prefix, ok := step.DisplayPrefix(); ok {
		r.join(&sb, prefix)
	}
	if sb.Len() == 0 {
		return "", false, nil
	}
	return sb.String(), true, nil
}

// DisplayOutcome joins the outcomes of all resolved steps.
func (r *Round) DisplayOutcome() (string, error) {
	var sb strings.Builder
	for _, s := range r.resolved {
		out, err := s.DisplayOutcome()
		if err != nil {
			return "", err
		}
		r.join(&sb, out)
	}
	return sb.String(), nil
}

// RunNextStep runs the front pending step. On failure the step goes back to
// the front of the queue so the next attempt targets it again.
func (r *Round) RunNextStep(ctx context.Context, b inference.Backend, req *inference.Request) error {
	return r.advance(ctx, req, func(step Step, prefix string, hasPrefix bool) error {
		logger.FromContext(ctx).Debug("running step", "step", step.Index(), "type", stepType(step))
		return step.run(ctx, b, req, prefix, hasPrefix)
	})
}

// CacheNextStep resolves the front pending step by priming the backend cache
// up to it instead of running it.
func (r *Round) CacheNextStep(ctx context.Context, b inference.Backend, req *inference.Request) error {
	return r.advance(ctx, req, func(step Step, prefix string, hasPrefix bool) error {
		return primeCache(ctx, b, req, prefix, hasPrefix)
	})
}

func (r *Round) advance(ctx context.Context, req *inference.Request, exec func(Step, string, bool) error) error {
	if len(r.pending) == 0 {
		return ErrNoSteps
	}
	step := r.pending[0]
	r.pending = r.pending[1:]

	prefix, hasPrefix, err := r.GenerationPrefix(step)
	if err == nil {
		err = exec(step, prefix, hasPrefix)
	}
	if err != nil {
		r.pending = slices.Insert(r.pending, 0, step)
		return err
	}
	r.resolved = append(r.resolved, step)
	return nil
}

// RunAllSteps opens the round, runs every pending step and closes it. A
// failed step is retried until more than MaxFailures attempts have failed
// in total; the round is then rolled back so all steps are pending again in
// their original order, and an *ExhaustedError is returned. A round whose
// steps have all resolved already is left alone, so running a cascade again
// after a later round failed does not repeat its transcript turns.
func (r *Round) RunAllSteps(ctx context.Context, b inference.Backend, req *inference.Request) error {
	if len(r.pending) == 0 && len(r.resolved) > 0 {
		return nil
	}
	log := logger.FromContext(ctx).With("task", r.Task)
	r.Open(req)

	failures := 0
	for len(r.pending) > 0 {
		err := r.RunNextStep(ctx, b, req)
		if err == nil {
			continue
		}
		failures++
		log.Warn("step failed", "step", r.pending[0].Index(), "failures", failures, "error", err)

		if ctx.Err() != nil {
			r.rollback()
			return fmt.Errorf("round %q: %w", r.Task, err)
		}
		if failures > r.MaxFailures {
			r.rollback()
			log.Error("round exhausted, rolled back", "failures", failures)
			return &ExhaustedError{Round: r.Task, Failures: failures, Err: err}
		}
	}
	return r.Close(req)
}

// rollback moves every resolved step back to the front of pending and
// discards their outputs.
func (r *Round) rollback() {
	for _, s := range r.resolved {
		s.reset()
	}
	r.pending = append(r.resolved, r.pending...)
	r.resolved = nil
}

// Open writes the task into the transcript as a user turn.
func (r *Round) Open(req *inference.Request) {
	req.Transcript.AddUser(r.Task)
}

// Close writes the round outcome into the transcript as an assistant turn.
func (r *Round) Close(req *inference.Request) error {
	outcome, err := r.DisplayOutcome()
	if err != nil {
		return err
	}
	req.Transcript.AddAssistant(outcome)
	return nil
}

// PrimitiveResult returns the undecorated output of the last resolved step.
func (r *Round) PrimitiveResult() (string, bool, error) {
	if len(r.resolved) == 0 {
		return "", false, nil
	}
	return PrimitiveResult(r.resolved[len(r.resolved)-1])
}

func (r *Round) LastStep() (Step, error) {
	if len(r.resolved) == 0 {
		return nil, ErrNoSteps
	}
	return r.resolved[len(r.resolved)-1], nil
}

func (r *Round) DropLastStep() error {
	if len(r.resolved) == 0 {
		return ErrNoSteps
	}
	r.resolved = r.resolved[:len(r.resolved)-1]
	return nil
}

func stepType(step Step) string {
	switch step.(type) {
	case *InferenceStep:
		return "inference"
	case *GuidanceStep:
		return "guidance"
	default:
		return "unknown"
	}
}
