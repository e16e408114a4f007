package cascade

import (
	"context"
	"fmt"

	"github.com/samcharles93/cascade/internal/grammar"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/logger"
)

// Step is either an *InferenceStep or a *GuidanceStep.
type Step interface {
	// Index is the 1-based position assigned when the step was added.
	Index() int
	Config() StepConfig
	DisplayPrefix() (string, bool)
	DisplayOutcome() (string, error)

	run(ctx context.Context, b inference.Backend, req *inference.Request, prefix string, hasPrefix bool) error
	reset()
}

// InferenceStep asks the backend for grammar-constrained text.
type InferenceStep struct {
	index  int
	config StepConfig

	output    string
	hasOutput bool

	dynamicSuffix string
}

// GuidanceStep contributes fixed text as if the model had generated it.
type GuidanceStep struct {
	index   int
	config  StepConfig
	content string
}

func newInferenceStep(cfg StepConfig, index int) *InferenceStep {
	if cfg.Grammar == nil {
		cfg.Grammar = grammar.NewText()
	}
	return &InferenceStep{index: index, config: cfg}
}

func newGuidanceStep(cfg StepConfig, index int, content string) *GuidanceStep {
	return &GuidanceStep{index: index, config: cfg, content: content}
}

func (s *InferenceStep) Index() int         { return s.index }
func (s *InferenceStep) Config() StepConfig { return s.config }

func (s *InferenceStep) DisplayPrefix() (string, bool) {
	return s.config.DisplayPrefix(s.index)
}

// Output returns the validated model output; false when the step is
// unresolved or the model answered with the no-result sentinel.
func (s *InferenceStep) Output() (string, bool) {
	return s.output, s.hasOutput
}

func (s *InferenceStep) DynamicSuffix() string { return s.dynamicSuffix }

// SetDynamicSuffix sets text appended after the output when displayed.
func (s *InferenceStep) SetDynamicSuffix(suffix string) {
	s.dynamicSuffix = suffix
}

func (s *InferenceStep) DisplayOutcome() (string, error) {
	content := s.output
	if !s.hasOutput {
		if s.config.NoResultSentinel == "" {
			return "", ErrNoOutcome
		}
		content = s.config.NoResultSentinel
	}
	prefix, _ := s.DisplayPrefix()
	return prefix + content + s.dynamicSuffix, nil
}

func (s *InferenceStep) reset() {
	s.output, s.hasOutput = "", false
}

func (s *InferenceStep) run(ctx context.Context, b inference.Backend, req *inference.Request, prefix string, hasPrefix bool) error {
	req.MaxTokens = nil
	req.SetStopSentinels(s.config.DoneSentinel, s.config.NoResultSentinel)

	// The grammar and the stop set must agree on both sentinels.
	g := s.config.Grammar
	g.SetNoResultSentinel(s.config.NoResultSentinel)
	g.SetDoneSentinel(s.config.DoneSentinel)
	req.Grammar = g.Source()

	setPrefix(req, prefix, hasPrefix)
	req.CachePrompt = s.config.CachePrompt

	c, err := b.Complete(ctx, req)
	if err != nil {
		return err
	}
	if seq, ok := c.MatchedStop(req.Stops); ok && seq.Kind == inference.SequenceNoResult {
		s.output, s.hasOutput = "", false
		return nil
	}

	text, err := g.Validate(c.Text)
	if err != nil {
		logger.FromContext(ctx).Debug("completion failed grammar validation", "kind", g.Kind(), "content", c.Text)
		return err
	}
	s.output, s.hasOutput = text, true
	return nil
}

func (s *GuidanceStep) Index() int         { return s.index }
func (s *GuidanceStep) Config() StepConfig { return s.config }
func (s *GuidanceStep) Content() string    { return s.content }

func (s *GuidanceStep) DisplayPrefix() (string, bool) {
	return s.config.DisplayPrefix(s.index)
}

func (s *GuidanceStep) DisplayOutcome() (string, error) {
	prefix, _ := s.DisplayPrefix()
	return prefix + s.content, nil
}

func (s *GuidanceStep) reset() {}

func (s *GuidanceStep) run(ctx context.Context, b inference.Backend, req *inference.Request, prefix string, hasPrefix bool) error {
	return primeCache(ctx, b, req, prefix, hasPrefix)
}

func primeCache(ctx context.Context, b inference.Backend, req *inference.Request, prefix string, hasPrefix bool) error {
	setPrefix(req, prefix, hasPrefix)
	if err := b.PrimeCache(ctx, req); err != nil {
		return fmt.Errorf("prime cache up to step: %w", err)
	}
	return nil
}

func setPrefix(req *inference.Request, prefix string, hasPrefix bool) {
	if hasPrefix {
		req.SetGenerationPrefix(prefix)
	} else {
		req.ClearGenerationPrefix()
	}
}

// PrimitiveResult returns the undecorated output of an inference step.
func PrimitiveResult(step Step) (string, bool, error) {
	switch s := step.(type) {
	case *InferenceStep:
		out, ok := s.Output()
		return out, ok, nil
	case *GuidanceStep:
		return "", false, ErrUnsupportedVariant
	default:
		panic(fmt.Sprintf("cascade: unknown step type %T", step))
	}
}

// SetDynamicSuffix sets the display suffix of an inference step.
func SetDynamicSuffix(step Step, suffix string) error {
	switch s := step.(type) {
	case *InferenceStep:
		s.SetDynamicSuffix(suffix)
		return nil
	case *GuidanceStep:
		return ErrUnsupportedVariant
	default:
		panic(fmt.Sprintf("cascade: unknown step type %T", step))
	}
}
