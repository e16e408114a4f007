// Package inference defines the request context shared by cascade steps and
// the contract completion backends implement.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/samcharles93/cascade/internal/prompt"
)

// Backend generates constrained completions and primes its prompt cache.
type Backend interface {
	// Complete continues the request transcript from its generation prefix.
	// When req.Stops.Required is set a completion that did not halt on a
	// registered stop sequence is an error, see CheckFinish.
	Complete(ctx context.Context, req *Request) (*Completion, error)
	// PrimeCache advances the backend's prompt cache up to the generation
	// prefix without generating text.
	PrimeCache(ctx context.Context, req *Request) error
}

// Request is the mutable context threaded through every step of a cascade.
// Each step overwrites the fields it owns before calling the backend.
type Request struct {
	Transcript prompt.Transcript
	Stops      StopSequences
	Grammar    string

	CachePrompt bool

	GenerationPrefix    string
	HasGenerationPrefix bool

	// MaxTokens caps the response length; nil leaves it to the backend.
	MaxTokens *int

	Config Config
}

func NewRequest(cfg Config) *Request {
	return &Request{Config: cfg}
}

func (r *Request) SetGenerationPrefix(prefix string) {
	r.GenerationPrefix = prefix
	r.HasGenerationPrefix = true
}

func (r *Request) ClearGenerationPrefix() {
	r.GenerationPrefix = ""
	r.HasGenerationPrefix = false
}

// SetStopSentinels replaces the stop set with the given sentinels. Empty
// words are skipped. The set is required only when it holds a sentinel, so a
// step without sentinels may end on EOS.
func (r *Request) SetStopSentinels(done, noResult string) {
	r.Stops.Reset()
	if done != "" {
		r.Stops.SetDone(done)
	}
	if noResult != "" {
		r.Stops.SetNoResult(noResult)
	}
	r.Stops.Required = len(r.Stops.Sequences) > 0
}

type FinishReason int

const (
	FinishUnknown FinishReason = iota
	// FinishEOS means the model emitted its end of sequence token.
	FinishEOS
	// FinishLimit means the token limit was reached.
	FinishLimit
	// FinishStop means generation halted on a stop word, see Completion.StopWord.
	FinishStop
)

func (f FinishReason) String() string {
	switch f {
	case FinishEOS:
		return "eos"
	case FinishLimit:
		return "limit"
	case FinishStop:
		return "stop"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

type Completion struct {
	Text     string
	Finish   FinishReason
	StopWord string
	Stats    Stats
}

// MatchedStop reports which registered stop sequence halted generation.
func (c *Completion) MatchedStop(stops StopSequences) (Sequence, bool) {
	if c.Finish != FinishStop {
		return Sequence{}, false
	}
	return stops.Match(c.StopWord)
}

type Stats struct {
	PromptTokens    int
	CachedTokens    int
	TokensGenerated int
	PromptDuration  time.Duration
	Duration        time.Duration
	TPS             float64
}
