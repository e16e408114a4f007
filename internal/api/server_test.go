package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/prompt"
)

// testBackend answers every completion with the same text, stopping on the
// request's first stop word.
type testBackend struct {
	mu        sync.Mutex
	text      string
	err       error
	healthErr error
	temps     []float64
}

func (b *testBackend) Complete(_ context.Context, req *inference.Request) (*inference.Completion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.temps = append(b.temps, req.Config.Temperature)
	if b.err != nil {
		return nil, b.err
	}
	c := &inference.Completion{Text: b.text, Finish: inference.FinishEOS}
	if words := req.Stops.Words(); len(words) > 0 {
		c.Finish = inference.FinishStop
		c.StopWord = words[0]
	}
	return c, nil
}

func (b *testBackend) PrimeCache(context.Context, *inference.Request) error { return nil }

func (b *testBackend) Health(context.Context) error { return b.healthErr }

func newTestEcho(backend *testBackend) *echo.Echo {
	service := NewCascadeService(backend, inference.ConfigOptions{})
	server := NewServer(NewCascadeStore(), service)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const countFlow = `{
	"name": "count",
	"system": "Answer briefly.",
	"sampling": {"temperature": 0.1},
	"rounds": [{
		"task": "How many legs does a spider have?",
		"steps": [
			{"type": "guidance", "content": "It has"},
			{"type": "inference", "grammar": {"kind": "integer", "lower": 1, "upper": 20}}
		]
	}]
}`

func TestCreateGetDeleteCascadeLifecycle(t *testing.T) {
	t.Parallel()

	backend := &testBackend{text: " 8"}
	e := newTestEcho(backend)
	createRec := doJSON(t, e, http.MethodPost, "/v1/cascades", countFlow)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}

	var created CascadeResponse
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if !strings.HasPrefix(created.ID, "cascade_") {
		t.Fatalf("unexpected id %q", created.ID)
	}
	if created.Status != statusCompleted || created.Result == nil || *created.Result != "8" {
		t.Fatalf("unexpected run outcome: status=%q result=%v error=%+v", created.Status, created.Result, created.Error)
	}
	wantTranscript := []prompt.Message{
		{Role: prompt.RoleSystem, Content: "Answer briefly."},
		{Role: prompt.RoleUser, Content: "How many legs does a spider have?"},
		{Role: prompt.RoleAssistant, Content: "It has 8"},
	}
	if diff := cmp.Diff(wantTranscript, created.Transcript); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	if len(created.Rounds) != 1 || created.Rounds[0].Outcome != "It has 8" || len(created.Rounds[0].Steps) != 2 {
		t.Fatalf("unexpected rounds: %+v", created.Rounds)
	}
	if backend.temps[0] != 0.1 {
		t.Fatalf("sampling override not applied, temperature %v", backend.temps[0])
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/cascades/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}

	listRec := doJSON(t, e, http.MethodGet, "/v1/cascades", "")
	var list ListCascadesResponse
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil || len(list.Data) != 1 {
		t.Fatalf("list: %v body=%s", err, listRec.Body.String())
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/cascades/"+created.ID, "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	getDeletedRec := doJSON(t, e, http.MethodGet, "/v1/cascades/"+created.ID, "")
	if getDeletedRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", getDeletedRec.Code, getDeletedRec.Body.String())
	}
}

func TestCreateCascadeFailedRun(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testBackend{err: errors.New("backend down")})
	rec := doJSON(t, e, http.MethodPost, "/v1/cascades", countFlow)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp CascadeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != statusFailed || resp.Error == nil || resp.Error.Type != "round_exhausted_error" {
		t.Fatalf("expected exhausted failure, got status=%q error=%+v", resp.Status, resp.Error)
	}
	if resp.Result != nil {
		t.Fatalf("failed run should have no result, got %q", *resp.Result)
	}
	steps := resp.Rounds[0].Steps
	if len(steps) != 2 || steps[0].Resolved {
		t.Fatalf("rolled back round should list every step as pending: %+v", steps)
	}
}

func TestCreateCascadeValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testBackend{text: "x"})
	cases := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"name":`, ""},
		{"no rounds", `{"name": "x"}`, "rounds"},
		{"bad step", `{"name": "x", "rounds": [{"task": "t", "steps": [{"type": "magic"}]}]}`, `"param":"rounds[0].steps[0].type"`},
	}
	for _, tc := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/cascades", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", tc.name, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: unexpected error body: %s", tc.name, rec.Body.String())
		}
	}
}

func TestCompileGrammar(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testBackend{})
	rec := doJSON(t, e, http.MethodPost, "/v1/grammars", `{"kind": "integer", "lower": 1, "upper": 9, "done": "stop"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp CompileGrammarResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := CompileGrammarResponse{Kind: "integer", Source: `root ::= " " [1-9] " stop"`}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("grammar mismatch (-want +got):\n%s", diff)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/grammars", `{"kind": "integer", "lower": 9, "upper": 1}`)
	if !strings.Contains(rec.Body.String(), `"param":"upper"`) {
		t.Fatalf("expected offending field in error, got %s", rec.Body.String())
	}

	for _, body := range []string{
		`{"kind": "bogus"}`,
		`{"kind": "text", "done": "x", "no_result": "x"}`,
	} {
		rec := doJSON(t, e, http.MethodPost, "/v1/grammars", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestEcho(&testBackend{}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, newTestEcho(&testBackend{healthErr: errors.New("loading model")}), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "loading model") {
		t.Fatalf("expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestUnknownCascade(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testBackend{})
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := doJSON(t, e, method, "/v1/cascades/cascade_missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", method, rec.Code)
		}
	}
}
