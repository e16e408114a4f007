package grammar

import (
	"slices"
	"strings"
)

// ExactString constrains output to one of a fixed set of strings.
type ExactString struct {
	base
	options []string
}

func NewExactString(options ...string) *ExactString {
	g := &ExactString{}
	return g.Add(options...)
}

func (g *ExactString) Kind() Kind { return KindExactString }

func (g *ExactString) Options() []string { return slices.Clone(g.options) }

// Add appends options, skipping duplicates.
func (g *ExactString) Add(options ...string) *ExactString {
	for _, o := range options {
		if slices.Contains(g.options, o) {
			continue
		}
		g.options = append(g.options, o)
		g.invalidate()
	}
	return g
}

// Source panics when no options were added.
func (g *ExactString) Source() string {
	if len(g.options) == 0 {
		panic("grammar: exact string grammar needs at least one option")
	}
	return g.memo(func() string {
		alts := make([]string, len(g.options))
		for i, o := range g.options {
			alts[i] = literal(o)
		}
		body := "( " + strings.Join(alts, " | ") + " )"
		return rootRule("", body, g.done, g.noResult)
	})
}

func (g *ExactString) Validate(content string) (string, error) {
	return g.Parse(content)
}

func (g *ExactString) Parse(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if slices.Contains(g.options, trimmed) {
		return trimmed, nil
	}
	return "", parseError(content, "ExactString")
}
