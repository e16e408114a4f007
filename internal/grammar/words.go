package grammar

import (
	"fmt"
	"strings"
	"unicode"
)

// Words constrains output to a short run of lowercase words.
type Words struct {
	base
	minCount     uint8
	maxCount     uint8
	wordLength   uint8
	concatenator string
}

func NewWords() *Words {
	return &Words{
		minCount:     1,
		maxCount:     3,
		wordLength:   12,
		concatenator: " ",
	}
}

func (g *Words) Kind() Kind { return KindWords }

func (g *Words) SetMinCount(n uint8) *Words {
	g.minCount = n
	g.invalidate()
	return g
}

func (g *Words) SetMaxCount(n uint8) *Words {
	g.maxCount = n
	g.invalidate()
	return g
}

func (g *Words) SetWordLength(n uint8) *Words {
	g.wordLength = n
	g.invalidate()
	return g
}

func (g *Words) SetConcatenator(s string) *Words {
	g.concatenator = s
	g.invalidate()
	return g
}

func (g *Words) Source() string {
	return g.memo(func() string {
		body := countRange(false, g.minCount, g.maxCount, g.done)
		item := fmt.Sprintf("item ::= [a-z]{1,%d} %s", g.wordLength, literal(g.concatenator))
		return joinRules(rootRule(`" " `, body, g.done, g.noResult), item)
	})
}

func (g *Words) Validate(content string) (string, error) {
	return g.Parse(content)
}

func (g *Words) Parse(content string) (string, error) {
	content = strings.TrimLeftFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	content = strings.TrimRightFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsPunct(r)
	})
	if content == "" {
		return "", parseError(content, "String")
	}
	return content, nil
}
