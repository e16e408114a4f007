package grammar

import (
	"fmt"
	"strings"
)

// Sentences constrains output to between MinCount and MaxCount sentences,
// each ending in terminal punctuation.
type Sentences struct {
	base
	minCount        uint8
	maxCount        uint8
	tokenLength     uint32
	capitalizeFirst bool
	concatenator    string
	disallowed      []rune
}

func NewSentences() *Sentences {
	return &Sentences{
		minCount:        1,
		maxCount:        1,
		tokenLength:     50,
		capitalizeFirst: true,
		concatenator:    " ",
		disallowed:      []rune{'.', '!', '?'},
	}
}

func (g *Sentences) Kind() Kind { return KindSentences }

func (g *Sentences) MinCount() uint8 { return g.minCount }
func (g *Sentences) MaxCount() uint8 { return g.maxCount }

func (g *Sentences) SetMinCount(n uint8) *Sentences {
	g.minCount = n
	g.invalidate()
	return g
}

func (g *Sentences) SetMaxCount(n uint8) *Sentences {
	g.maxCount = n
	g.invalidate()
	return g
}

func (g *Sentences) SetTokenLength(n uint32) *Sentences {
	g.tokenLength = n
	g.invalidate()
	return g
}

func (g *Sentences) SetCapitalizeFirst(v bool) *Sentences {
	g.capitalizeFirst = v
	g.invalidate()
	return g
}

func (g *Sentences) SetConcatenator(s string) *Sentences {
	g.concatenator = s
	g.invalidate()
	return g
}

// Disallow adds characters that may not appear inside a sentence.
func (g *Sentences) Disallow(chars ...rune) *Sentences {
	g.disallowed = append(g.disallowed, chars...)
	g.invalidate()
	return g
}

func (g *Sentences) Source() string {
	return g.memo(g.compile)
}

func (g *Sentences) compile() string {
	budget := charBudget(g.tokenLength)
	class := disallowedClass(g.disallowed)
	quotes, hasQuotes := quoteAlternatives(g.disallowed)
	concat := literal(g.concatenator)

	item := fmt.Sprintf("item ::= %s %s", sentenceItem(budget, true, class, quotes, hasQuotes), concat)
	if g.capitalizeFirst {
		body := countRange(false, g.minCount, g.maxCount, g.done)
		return joinRules(rootRule("", body, g.done, g.noResult), item)
	}
	first := fmt.Sprintf("first ::= %s %s", sentenceItem(budget, false, class, quotes, hasQuotes), concat)
	body := countRange(true, g.minCount, g.maxCount, g.done)
	return joinRules(rootRule("", body, g.done, g.noResult), first, item)
}

func sentenceItem(budget uint32, capitalize bool, class, quotes string, hasQuotes bool) string {
	start := "[a-z]"
	if capitalize {
		start = "[A-Z]"
	}
	if !hasQuotes {
		return fmt.Sprintf(`%s %s{1,%d} [a-z] ("." | "?" | "!")`, start, class, budget)
	}
	return fmt.Sprintf(
		`(%s | %s) %s{1,%d} [a-z] ("." | "?" | "!" | "." %s | "?" %s | "!" %s)`,
		quotes, start, class, budget, quotes, quotes, quotes,
	)
}

func (g *Sentences) Validate(content string) (string, error) {
	return g.Parse(content)
}

func (g *Sentences) Parse(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", parseError(content, "String")
	}
	return content, nil
}
