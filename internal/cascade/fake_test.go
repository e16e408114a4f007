package cascade

import (
	"context"
	"errors"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
)

// call records the request fields a backend observed.
type call struct {
	kind      string
	prefix    string
	hasPrefix bool
	grammar   string
	stops     []string
	required  bool
	cache     bool
	maxTokens *int
}

type reply struct {
	text     string
	stopWord string
	err      error
}

// testBackend replays scripted replies in order and records every call.
type testBackend struct {
	replies  []reply
	primeErr error
	calls    []call
}

func (b *testBackend) record(kind string, req *inference.Request) {
	b.calls = append(b.calls, call{
		kind:      kind,
		prefix:    req.GenerationPrefix,
		hasPrefix: req.HasGenerationPrefix,
		grammar:   req.Grammar,
		stops:     req.Stops.Words(),
		required:  req.Stops.Required,
		cache:     req.CachePrompt,
		maxTokens: req.MaxTokens,
	})
}

func (b *testBackend) Complete(ctx context.Context, req *inference.Request) (*inference.Completion, error) {
	b.record("complete", req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(b.replies) == 0 {
		return nil, errors.New("test backend: no scripted reply")
	}
	r := b.replies[0]
	b.replies = b.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	c := &inference.Completion{Text: r.text, Finish: inference.FinishEOS}
	if r.stopWord != "" {
		c.Finish = inference.FinishStop
		c.StopWord = r.stopWord
	}
	return c, nil
}

func (b *testBackend) PrimeCache(_ context.Context, req *inference.Request) error {
	b.record("prime", req)
	return b.primeErr
}

func (b *testBackend) count(kind string) int {
	n := 0
	for _, c := range b.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func newRequest() *inference.Request {
	return inference.NewRequest(inference.DefaultConfig())
}
