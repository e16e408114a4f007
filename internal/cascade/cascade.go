// Package cascade drives a model through rounds of steps. Each resolved
// step's display text becomes the literal generation prefix of the next, and
// every inference step is constrained by a grammar.
//
// A single *inference.Request is threaded through every call. It is the only
// state shared between steps and must not be used concurrently.
package cascade

import (
	"context"
	"time"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
)

type Cascade struct {
	Name string
	// ResultCanBeNone lets Result succeed when the last step answered with
	// its no-result sentinel.
	ResultCanBeNone bool

	rounds   []*Round
	start    time.Time
	duration time.Duration
}

func New(name string) *Cascade {
	return &Cascade{Name: name, start: time.Now()}
}

// NewRound appends an empty round for task and returns it.
func (c *Cascade) NewRound(task string) *Round {
	r := NewRound(task)
	c.rounds = append(c.rounds, r)
	return r
}

func (c *Cascade) AddRound(r *Round) {
	c.rounds = append(c.rounds, r)
}

func (c *Cascade) Rounds() []*Round {
	return c.rounds
}

// RunAllRounds runs every round in order and stops at the first failure.
func (c *Cascade) RunAllRounds(ctx context.Context, b inference.Backend, req *inference.Request) error {
	c.Open()
	defer c.Close()

	log := logger.FromContext(ctx).With("cascade", c.Name)
	for i, r := range c.rounds {
		roundLog := log.With("round", i+1)
		if err := r.RunAllSteps(logger.WithContext(ctx, roundLog), b, req); err != nil {
			return err
		}
		roundLog.Debug("round resolved", "steps", len(r.resolved))
	}
	return nil
}

func (c *Cascade) LastRound() (*Round, error) {
	if len(c.rounds) == 0 {
		return nil, ErrNoRounds
	}
	return c.rounds[len(c.rounds)-1], nil
}

func (c *Cascade) DropLastRound() error {
	if len(c.rounds) == 0 {
		return ErrNoRounds
	}
	c.rounds = c.rounds[:len(c.rounds)-1]
	return nil
}

// Open starts the cascade timer.
func (c *Cascade) Open() {
	c.start = time.Now()
}

// Close records the time elapsed since Open.
func (c *Cascade) Close() {
	c.duration = time.Since(c.start)
}

func (c *Cascade) Duration() time.Duration {
	return c.duration
}

// PrimitiveResult returns the undecorated output of the last step of the
// last round.
func (c *Cascade) PrimitiveResult() (string, bool, error) {
	r, err := c.LastRound()
	if err != nil {
		return "", false, err
	}
	return r.PrimitiveResult()
}

// Result is PrimitiveResult with a missing value turned into ErrNoResult
// unless ResultCanBeNone is set.
func (c *Cascade) Result() (string, error) {
	out, ok, err := c.PrimitiveResult()
	if err != nil {
		return "", err
	}
	if !ok && !c.ResultCanBeNone {
		return "", ErrNoResult
	}
	return out, nil
}
