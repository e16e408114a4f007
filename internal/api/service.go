package api

import (
	"context"
	"sync"
	"time"

	"github.com/samcharles93/cascade/internal/cascade"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
)

// CascadeService runs cascades against one backend. Runs are serialized
// because a cascade relies on the backend's prompt cache following its own
// transcript.
type CascadeService struct {
	mu       sync.Mutex
	backend  inference.Backend
	defaults inference.ConfigOptions
	clock    func() time.Time
}

func NewCascadeService(backend inference.Backend, defaults inference.ConfigOptions) *CascadeService {
	return &CascadeService{
		backend:  backend,
		defaults: defaults,
		clock:    time.Now,
	}
}

// Backend exposes the configured backend for health checks.
func (s *CascadeService) Backend() inference.Backend {
	return s.backend
}

// Run builds and executes a cascade. Invalid definitions return an error
// wrapping ErrInvalidRequest; failed runs are reported in the response.
func (s *CascadeService) Run(ctx context.Context, req *CreateCascadeRequest) (*CascadeResponse, error) {
	c, err := req.Flow.Build()
	if err != nil {
		return nil, newInvalidRequest(err)
	}

	cfg := inference.ResolveConfig(mergeOptions(s.defaults, req.Sampling.configOptions()))
	ireq := inference.NewRequest(cfg)
	if req.System != "" {
		ireq.Transcript.AddSystem(req.System)
	}

	id := newCascadeID()
	log := logger.FromContext(ctx).With("cascade_id", id)
	ctx = logger.WithContext(ctx, log)

	s.mu.Lock()
	created := s.clock()
	runErr := c.RunAllRounds(ctx, s.backend, ireq)
	s.mu.Unlock()

	resp := describe(c, ireq)
	resp.ID = id
	resp.CreatedAt = created.Unix()
	resp.Status = statusCompleted

	result, resErr := c.Result()
	switch {
	case runErr != nil:
		resp.Status = statusFailed
		resp.Error = runError(runErr)
		log.Warn("cascade failed", "error", runErr)
	case resErr != nil:
		resp.Status = statusFailed
		resp.Error = runError(resErr)
	default:
		if _, ok, _ := c.PrimitiveResult(); ok {
			resp.Result = &result
		}
	}
	log.Info("cascade finished", "status", resp.Status, "duration", c.Duration())
	return resp, nil
}

// describe snapshots a cascade and its transcript.
func describe(c *cascade.Cascade, req *inference.Request) *CascadeResponse {
	resp := &CascadeResponse{
		Object:     "cascade",
		Name:       c.Name,
		Rounds:     make([]RoundOutcome, 0, len(c.Rounds())),
		Transcript: req.Transcript.Messages(),
		DurationMS: c.Duration().Milliseconds(),
	}
	for _, r := range c.Rounds() {
		out := RoundOutcome{Task: r.Task}
		if len(r.Pending()) == 0 {
			out.Outcome, _ = r.DisplayOutcome()
		}
		for _, s := range r.Resolved() {
			out.Steps = append(out.Steps, describeStep(s, true))
		}
		for _, s := range r.Pending() {
			out.Steps = append(out.Steps, describeStep(s, false))
		}
		resp.Rounds = append(resp.Rounds, out)
	}
	return resp
}

func describeStep(s cascade.Step, resolved bool) StepOutcome {
	out := StepOutcome{Index: s.Index(), Resolved: resolved}
	switch s.(type) {
	case *cascade.GuidanceStep:
		out.Type = "guidance"
	default:
		out.Type = "inference"
	}
	if resolved {
		out.Outcome, _ = s.DisplayOutcome()
	}
	return out
}

func mergeOptions(base, override inference.ConfigOptions) inference.ConfigOptions {
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.TopK != nil {
		base.TopK = override.TopK
	}
	if override.TopP != nil {
		base.TopP = override.TopP
	}
	if override.MinP != nil {
		base.MinP = override.MinP
	}
	if override.RepeatPenalty != nil {
		base.RepeatPenalty = override.RepeatPenalty
	}
	if override.RepeatLastN != nil {
		base.RepeatLastN = override.RepeatLastN
	}
	if override.Seed != nil {
		base.Seed = override.Seed
	}
	if override.MaxAttempts != nil {
		base.MaxAttempts = override.MaxAttempts
	}
	return base
}
