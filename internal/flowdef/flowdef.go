// Package flowdef loads cascade descriptions from YAML or JSON and builds
// runnable cascades from them.
package flowdef

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/cascade/internal/cascade"
)

const (
	StepInference = "inference"
	StepGuidance  = "guidance"
)

type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var ErrInvalid = errors.New("invalid flow definition")

// FieldError locates a problem in a definition, e.g. "rounds[0].steps[1]".
type FieldError struct {
	Path string
	Msg  string
}

func (e *FieldError) Error() string {
	return e.Path + ": " + e.Msg
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// Flow describes a cascade.
type Flow struct {
	Name            string  `yaml:"name" json:"name"`
	ResultCanBeNone bool    `yaml:"result_can_be_none,omitempty" json:"result_can_be_none,omitempty"`
	Rounds          []Round `yaml:"rounds" json:"rounds"`
}

type Round struct {
	Task string `yaml:"task" json:"task"`
	// Separator joins step outcomes; it must be a single character. Empty
	// means no separator, unset means a space.
	Separator   *string `yaml:"separator,omitempty" json:"separator,omitempty"`
	MaxFailures *int    `yaml:"max_failures,omitempty" json:"max_failures,omitempty"`
	Steps       []Step  `yaml:"steps" json:"steps"`
}

type Step struct {
	Type    string `yaml:"type" json:"type"`
	Content string `yaml:"content,omitempty" json:"content,omitempty"`
	Prefix  string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	// Done defaults to cascade.DefaultDoneSentinel; set it to "" to disable.
	Done        *string  `yaml:"done,omitempty" json:"done,omitempty"`
	NoResult    string   `yaml:"no_result,omitempty" json:"no_result,omitempty"`
	UseCounter  bool     `yaml:"use_counter,omitempty" json:"use_counter,omitempty"`
	CachePrompt *bool    `yaml:"cache_prompt,omitempty" json:"cache_prompt,omitempty"`
	Grammar     *Grammar `yaml:"grammar,omitempty" json:"grammar,omitempty"`
}

// Load reads a definition, picking the decoder from the file extension.
func Load(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	flow, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return flow, nil
}

// Parse decodes a definition. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Flow, error) {
	var flow Flow
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&flow); err != nil {
			return nil, fmt.Errorf("decode json flow: %w", err)
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&flow); err != nil {
			return nil, fmt.Errorf("decode yaml flow: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown flow format %q", format)
	}
	return &flow, nil
}

// Validate reports every problem in the definition at once.
func (f *Flow) Validate() error {
	_, err := f.Build()
	return err
}

// Build constructs a cascade. All problems are collected and returned joined.
func (f *Flow) Build() (*cascade.Cascade, error) {
	var errs []error
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, &FieldError{Path: "name", Msg: "is required"})
	}
	if len(f.Rounds) == 0 {
		errs = append(errs, &FieldError{Path: "rounds", Msg: "at least one round is required"})
	}

	c := cascade.New(f.Name)
	c.ResultCanBeNone = f.ResultCanBeNone
	for i := range f.Rounds {
		round, roundErrs := f.Rounds[i].build(fmt.Sprintf("rounds[%d]", i))
		errs = append(errs, roundErrs...)
		if round != nil {
			c.AddRound(round)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (r *Round) build(path string) (*cascade.Round, []error) {
	var errs []error
	if strings.TrimSpace(r.Task) == "" {
		errs = append(errs, &FieldError{Path: path + ".task", Msg: "is required"})
	}
	if len(r.Steps) == 0 {
		errs = append(errs, &FieldError{Path: path + ".steps", Msg: "at least one step is required"})
	}

	round := cascade.NewRound(r.Task)
	if r.Separator != nil {
		switch utf8.RuneCountInString(*r.Separator) {
		case 0:
			round.SetSeparator(0)
		case 1:
			sep, _ := utf8.DecodeRuneInString(*r.Separator)
			round.SetSeparator(sep)
		default:
			errs = append(errs, &FieldError{Path: path + ".separator", Msg: fmt.Sprintf("must be a single character, got %q", *r.Separator)})
		}
	}
	if r.MaxFailures != nil {
		if *r.MaxFailures < 0 {
			errs = append(errs, &FieldError{Path: path + ".max_failures", Msg: "must not be negative"})
		} else {
			round.SetMaxFailures(*r.MaxFailures)
		}
	}

	for i := range r.Steps {
		stepPath := fmt.Sprintf("%s.steps[%d]", path, i)
		s := &r.Steps[i]
		cfg, stepErrs := s.config(stepPath)
		errs = append(errs, stepErrs...)
		if len(stepErrs) > 0 {
			continue
		}
		switch s.kind() {
		case StepGuidance:
			round.AddGuidanceStep(cfg, s.Content)
		default:
			round.AddInferenceStep(cfg)
		}
	}
	return round, errs
}

func (s *Step) kind() string {
	return strings.ToLower(strings.TrimSpace(s.Type))
}

func (s *Step) config(path string) (cascade.StepConfig, []error) {
	cfg := cascade.DefaultStepConfig()
	cfg.Prefix = s.Prefix
	cfg.NoResultSentinel = s.NoResult
	cfg.UseCounter = s.UseCounter
	if s.Done != nil {
		cfg.DoneSentinel = *s.Done
	}
	if s.CachePrompt != nil {
		cfg.CachePrompt = *s.CachePrompt
	}

	var errs []error
	switch s.kind() {
	case StepGuidance:
		if s.Content == "" {
			errs = append(errs, &FieldError{Path: path + ".content", Msg: "guidance steps need content"})
		}
		if s.Grammar != nil {
			errs = append(errs, &FieldError{Path: path + ".grammar", Msg: "guidance steps do not take a grammar"})
		}
	case StepInference, "":
		if s.Content != "" {
			errs = append(errs, &FieldError{Path: path + ".content", Msg: "inference steps generate their content"})
		}
		if s.Grammar != nil {
			g, err := s.Grammar.Build()
			if err != nil {
				errs = append(errs, prefixed(path+".grammar", err)...)
			} else {
				cfg.Grammar = g
			}
		}
	default:
		errs = append(errs, &FieldError{Path: path + ".type", Msg: fmt.Sprintf("unknown step type %q (expected inference or guidance)", s.Type)})
	}
	if cfg.DoneSentinel != "" && cfg.DoneSentinel == cfg.NoResultSentinel {
		errs = append(errs, &FieldError{Path: path + ".no_result", Msg: "must differ from the done sentinel"})
	}
	return cfg, errs
}

// prefixed re-roots the field errors produced by a nested builder.
func prefixed(path string, err error) []error {
	var out []error
	for _, e := range unjoin(err) {
		var fe *FieldError
		if errors.As(e, &fe) {
			out = append(out, &FieldError{Path: path + "." + fe.Path, Msg: fe.Msg})
			continue
		}
		out = append(out, &FieldError{Path: path, Msg: e.Error()})
	}
	return out
}

func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
