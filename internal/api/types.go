package api

import (
	"github.com/samcharles93/cascade/internal/flowdef"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/prompt"
)

// CreateCascadeRequest is a flow definition plus per-run settings.
type CreateCascadeRequest struct {
	flowdef.Flow

	System   string           `json:"system,omitempty"`
	Sampling *SamplingOptions `json:"sampling,omitempty"`
}

type SamplingOptions struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	MinP          *float64 `json:"min_p,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	MaxAttempts   *int     `json:"max_attempts,omitempty"`
}

func (o *SamplingOptions) configOptions() inference.ConfigOptions {
	if o == nil {
		return inference.ConfigOptions{}
	}
	return inference.ConfigOptions{
		Temperature:   o.Temperature,
		TopK:          o.TopK,
		TopP:          o.TopP,
		MinP:          o.MinP,
		RepeatPenalty: o.RepeatPenalty,
		Seed:          o.Seed,
		MaxAttempts:   o.MaxAttempts,
	}
}

type CascadeResponse struct {
	ID         string           `json:"id"`
	Object     string           `json:"object"`
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	CreatedAt  int64            `json:"created_at"`
	Rounds     []RoundOutcome   `json:"rounds"`
	Result     *string          `json:"result"`
	Transcript []prompt.Message `json:"transcript"`
	DurationMS int64            `json:"duration_ms"`
	Error      *ResponseError   `json:"error,omitempty"`
}

type RoundOutcome struct {
	Task    string        `json:"task"`
	Outcome string        `json:"outcome,omitempty"`
	Steps   []StepOutcome `json:"steps"`
}

type StepOutcome struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Outcome  string `json:"outcome,omitempty"`
	Resolved bool   `json:"resolved"`
}

type DeleteCascadeResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ListCascadesResponse struct {
	Object string            `json:"object"`
	Data   []CascadeResponse `json:"data"`
}

// CompileGrammarRequest compiles a grammar without running anything.
type CompileGrammarRequest struct {
	flowdef.Grammar

	Done     string `json:"done,omitempty"`
	NoResult string `json:"no_result,omitempty"`
}

type CompileGrammarResponse struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

const (
	statusCompleted = "completed"
	statusFailed    = "failed"
)
