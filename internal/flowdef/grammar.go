package flowdef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/cascade/internal/grammar"
)

// Grammar selects a grammar kind and its parameters. Parameters that do not
// apply to the kind are rejected.
type Grammar struct {
	Kind string `yaml:"kind" json:"kind"`

	// integer
	Lower *uint32 `yaml:"lower,omitempty" json:"lower,omitempty"`
	Upper *uint32 `yaml:"upper,omitempty" json:"upper,omitempty"`

	// sentences, text_list, words
	MinCount *uint8 `yaml:"min_count,omitempty" json:"min_count,omitempty"`
	MaxCount *uint8 `yaml:"max_count,omitempty" json:"max_count,omitempty"`

	// sentences, text_list, text
	TokenLength *uint32 `yaml:"token_length,omitempty" json:"token_length,omitempty"`
	Disallow    string  `yaml:"disallow,omitempty" json:"disallow,omitempty"`

	// sentences
	CapitalizeFirst *bool `yaml:"capitalize_first,omitempty" json:"capitalize_first,omitempty"`

	// sentences, words
	Concatenator *string `yaml:"concatenator,omitempty" json:"concatenator,omitempty"`

	// text_list
	ItemPrefix string `yaml:"item_prefix,omitempty" json:"item_prefix,omitempty"`

	// text
	AllowNewline bool `yaml:"allow_newline,omitempty" json:"allow_newline,omitempty"`

	// words
	WordLength *uint8 `yaml:"word_length,omitempty" json:"word_length,omitempty"`

	// exact_string
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Build constructs the grammar. Sentinels are left unset; steps assign them
// before every run.
func (g *Grammar) Build() (grammar.Grammar, error) {
	var errs []error
	reject := func(field string, set bool) {
		if set {
			errs = append(errs, &FieldError{Path: field, Msg: fmt.Sprintf("not supported by %s grammars", g.Kind)})
		}
	}
	counts := func() {
		if g.MinCount != nil && g.MaxCount != nil && *g.MaxCount < *g.MinCount {
			errs = append(errs, &FieldError{Path: "max_count", Msg: "must not be below min_count"})
		}
	}

	var out grammar.Grammar
	switch grammar.Kind(strings.ToLower(strings.TrimSpace(g.Kind))) {
	case grammar.KindInteger:
		reject("min_count", g.MinCount != nil)
		reject("max_count", g.MaxCount != nil)
		reject("token_length", g.TokenLength != nil)
		reject("disallow", g.Disallow != "")
		ig := grammar.NewInteger()
		if g.Lower != nil {
			ig.SetLowerBound(*g.Lower)
		}
		if g.Upper != nil {
			ig.SetUpperBound(*g.Upper)
		}
		if ig.UpperBound() <= ig.LowerBound() {
			errs = append(errs, &FieldError{Path: "upper", Msg: fmt.Sprintf("must be above lower (%d <= %d)", ig.UpperBound(), ig.LowerBound())})
		}
		out = ig
	case grammar.KindSentences:
		reject("lower", g.Lower != nil)
		reject("upper", g.Upper != nil)
		counts()
		sg := grammar.NewSentences()
		if g.MinCount != nil {
			sg.SetMinCount(*g.MinCount)
		}
		if g.MaxCount != nil {
			sg.SetMaxCount(*g.MaxCount)
		}
		if g.TokenLength != nil {
			sg.SetTokenLength(*g.TokenLength)
		}
		if g.CapitalizeFirst != nil {
			sg.SetCapitalizeFirst(*g.CapitalizeFirst)
		}
		if g.Concatenator != nil {
			sg.SetConcatenator(*g.Concatenator)
		}
		if g.Disallow != "" {
			sg.Disallow([]rune(g.Disallow)...)
		}
		out = sg
	case grammar.KindTextList, "list":
		reject("lower", g.Lower != nil)
		reject("upper", g.Upper != nil)
		counts()
		lg := grammar.NewTextList()
		if g.MinCount != nil {
			lg.SetMinCount(*g.MinCount)
		}
		if g.MaxCount != nil {
			lg.SetMaxCount(*g.MaxCount)
		}
		if g.TokenLength != nil {
			lg.SetTokenLength(*g.TokenLength)
		}
		if g.ItemPrefix != "" {
			lg.SetItemPrefix(g.ItemPrefix)
		}
		if g.Disallow != "" {
			lg.Disallow([]rune(g.Disallow)...)
		}
		out = lg
	case grammar.KindText, "":
		reject("lower", g.Lower != nil)
		reject("upper", g.Upper != nil)
		reject("min_count", g.MinCount != nil)
		reject("max_count", g.MaxCount != nil)
		tg := grammar.NewText()
		if g.TokenLength != nil {
			tg.SetTokenLength(*g.TokenLength)
		}
		tg.SetAllowNewline(g.AllowNewline)
		if g.Disallow != "" {
			tg.Disallow([]rune(g.Disallow)...)
		}
		out = tg
	case grammar.KindWords:
		reject("lower", g.Lower != nil)
		reject("upper", g.Upper != nil)
		counts()
		wg := grammar.NewWords()
		if g.MinCount != nil {
			wg.SetMinCount(*g.MinCount)
		}
		if g.MaxCount != nil {
			wg.SetMaxCount(*g.MaxCount)
		}
		if g.WordLength != nil {
			wg.SetWordLength(*g.WordLength)
		}
		if g.Concatenator != nil {
			wg.SetConcatenator(*g.Concatenator)
		}
		out = wg
	case grammar.KindBoolean:
		reject("lower", g.Lower != nil)
		reject("upper", g.Upper != nil)
		out = grammar.NewBoolean()
	case grammar.KindExactString:
		if len(g.Options) == 0 {
			errs = append(errs, &FieldError{Path: "options", Msg: "at least one option is required"})
			break
		}
		out = grammar.NewExactString(g.Options...)
	case grammar.KindURL:
		out = grammar.NewURL()
	default:
		errs = append(errs, &FieldError{Path: "kind", Msg: fmt.Sprintf("unknown grammar kind %q", g.Kind)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
