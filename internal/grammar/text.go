package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

// Text constrains output to free text bounded by a character budget.
type Text struct {
	base
	tokenLength  uint32
	allowNewline bool
	disallowed   []rune
}

func NewText() *Text {
	return &Text{tokenLength: 200}
}

func (g *Text) Kind() Kind { return KindText }

func (g *Text) SetTokenLength(n uint32) *Text {
	g.tokenLength = n
	g.invalidate()
	return g
}

func (g *Text) SetAllowNewline(v bool) *Text {
	g.allowNewline = v
	g.invalidate()
	return g
}

func (g *Text) Disallow(chars ...rune) *Text {
	g.disallowed = append(g.disallowed, chars...)
	g.invalidate()
	return g
}

func (g *Text) Source() string {
	return g.memo(func() string {
		class := disallowedClass(g.disallowed)
		if g.allowNewline {
			class = negatedClass(g.disallowed)
		}
		budget := charBudget(g.tokenLength)
		body := fmt.Sprintf("item{1,%d}", budget)
		if g.done == "" && g.noResult == "" {
			body = fmt.Sprintf("item{0,%d}", budget)
		}
		return joinRules(rootRule("", body, g.done, g.noResult), "item ::= "+class)
	})
}

func negatedClass(chars []rune) string {
	if len(chars) == 0 {
		return "[^\\x00]"
	}
	var sb strings.Builder
	sb.WriteString("[^")
	for _, r := range chars {
		sb.WriteString(classChar(r))
	}
	sb.WriteString("]")
	return sb.String()
}

func (g *Text) Validate(content string) (string, error) {
	return g.Parse(content)
}

func (g *Text) Parse(content string) (string, error) {
	content = strings.TrimFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsPunct(r)
	})
	if content == "" {
		return "", parseError(content, "String")
	}
	return content, nil
}
