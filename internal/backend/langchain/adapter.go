// Package langchain adapts any langchaingo chat model to inference.Backend.
//
// Chat APIs cannot enforce GBNF grammars or report which stop word halted
// generation, so the adapter drops the grammar and infers the matched
// sentinel from the finish reason and content.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
	"github.com/samcharles93/cascade/internal/prompt"
)

type Adapter struct {
	model llms.Model
}

func New(model llms.Model) *Adapter {
	return &Adapter{model: model}
}

func (a *Adapter) Complete(ctx context.Context, req *inference.Request) (*inference.Completion, error) {
	log := logger.FromContext(ctx)
	if req.Grammar != "" {
		log.Debug("chat backend ignores grammar", "grammar_bytes", len(req.Grammar))
	}
	attempts := max(req.Config.MaxAttempts, 1)

	var errs []error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := a.complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		if ctx.Err() != nil || !inference.Retryable(err) {
			return nil, err
		}
		errs = append(errs, err)
		log.Warn("completion attempt failed", "attempt", attempt, "max_attempts", attempts, "error", err)
	}
	return nil, &inference.AttemptsError{Attempts: attempts, Errs: errs}
}

func (a *Adapter) complete(ctx context.Context, req *inference.Request) (*inference.Completion, error) {
	resp, err := a.model.GenerateContent(ctx, Messages(req), CallOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, inference.ErrEmptyContent
	}
	completion := toCompletion(req, resp.Choices[0])
	if err := inference.CheckFinish(req, completion); err != nil {
		return nil, err
	}
	if completion.Text == "" {
		if seq, ok := completion.MatchedStop(req.Stops); !ok || seq.Kind != inference.SequenceNoResult {
			return nil, inference.ErrEmptyContent
		}
	}
	return completion, nil
}

// PrimeCache is a no-op: chat APIs manage their own prompt caches.
func (a *Adapter) PrimeCache(context.Context, *inference.Request) error {
	return nil
}

// Messages maps the transcript to chat messages. A generation prefix is sent
// as a trailing assistant message for the model to continue.
func Messages(req *inference.Request) []llms.MessageContent {
	msgs := req.Transcript.Messages()
	out := make([]llms.MessageContent, 0, len(msgs)+1)
	for _, m := range msgs {
		out = append(out, llms.TextParts(chatRole(m.Role), m.Content))
	}
	if req.HasGenerationPrefix && req.GenerationPrefix != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeAI, req.GenerationPrefix))
	}
	return out
}

func chatRole(r prompt.Role) llms.ChatMessageType {
	switch r {
	case prompt.RoleSystem:
		return llms.ChatMessageTypeSystem
	case prompt.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// CallOptions translates sampling settings and stop words.
func CallOptions(req *inference.Request) []llms.CallOption {
	cfg := req.Config
	opts := []llms.CallOption{
		llms.WithTemperature(cfg.Temperature),
		llms.WithTopP(cfg.TopP),
		llms.WithTopK(cfg.TopK),
		llms.WithRepetitionPenalty(cfg.RepeatPenalty),
	}
	if cfg.Seed >= 0 {
		opts = append(opts, llms.WithSeed(int(cfg.Seed)))
	}
	if words := req.Stops.Words(); len(words) > 0 {
		opts = append(opts, llms.WithStopWords(words))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	}
	return opts
}

func toCompletion(req *inference.Request, choice *llms.ContentChoice) *inference.Completion {
	text := inference.SanitizeCompletion(choice.Content)
	c := &inference.Completion{Text: text, Finish: inference.FinishEOS}

	// Some servers leave the stop word in the content.
	for _, seq := range req.Stops.Sequences {
		if trimmed, found := strings.CutSuffix(text, seq.Word); found {
			c.Text = strings.TrimSpace(trimmed)
			c.Finish = inference.FinishStop
			c.StopWord = seq.Word
			return c
		}
	}

	switch strings.ToLower(choice.StopReason) {
	case "length", "max_tokens":
		c.Finish = inference.FinishLimit
	case "stop", "stop_sequence", "end_turn":
		if word, ok := inferStopWord(req.Stops, text); ok {
			c.Finish = inference.FinishStop
			c.StopWord = word
		}
	}
	return c
}

// inferStopWord guesses which sentinel ended a completion whose finish
// reason only says it stopped. Empty content points at the no-result
// sentinel, anything else at the done sentinel.
func inferStopWord(stops inference.StopSequences, text string) (string, bool) {
	want := inference.SequenceDone
	if text == "" {
		want = inference.SequenceNoResult
	}
	for _, seq := range stops.Sequences {
		if seq.Kind == want {
			return seq.Word, true
		}
	}
	return "", false
}
