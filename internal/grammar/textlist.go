package grammar

import (
	"fmt"
	"strings"
)

const bullet = "•"

// TextList constrains output to a bulleted list of single-line items.
type TextList struct {
	base
	minCount    uint8
	maxCount    uint8
	tokenLength uint32
	itemPrefix  string
	disallowed  []rune
}

func NewTextList() *TextList {
	return &TextList{
		minCount:    1,
		maxCount:    5,
		tokenLength: 50,
	}
}

func (g *TextList) Kind() Kind { return KindTextList }

func (g *TextList) MinCount() uint8    { return g.minCount }
func (g *TextList) MaxCount() uint8    { return g.maxCount }
func (g *TextList) ItemPrefix() string { return g.itemPrefix }

func (g *TextList) SetMinCount(n uint8) *TextList {
	g.minCount = n
	g.invalidate()
	return g
}

func (g *TextList) SetMaxCount(n uint8) *TextList {
	g.maxCount = n
	g.invalidate()
	return g
}

func (g *TextList) SetTokenLength(n uint32) *TextList {
	g.tokenLength = n
	g.invalidate()
	return g
}

// SetItemPrefix sets a literal tag written after each bullet. Empty clears it.
func (g *TextList) SetItemPrefix(prefix string) *TextList {
	g.itemPrefix = prefix
	g.invalidate()
	return g
}

func (g *TextList) Disallow(chars ...rune) *TextList {
	g.disallowed = append(g.disallowed, chars...)
	g.invalidate()
	return g
}

func (g *TextList) Source() string {
	return g.memo(g.compile)
}

func (g *TextList) compile() string {
	chars := append([]rune{'•'}, g.disallowed...)
	class := disallowedClass(chars)
	budget := charBudget(g.tokenLength)

	var item string
	if g.itemPrefix != "" {
		item = fmt.Sprintf(`item ::= %s %s %s{1,%d} "\n"`, literal(bullet+" "), literal(g.itemPrefix), class, budget)
	} else {
		item = fmt.Sprintf(`item ::= %s %s{1,%d} "\n"`, literal(bullet+" "), class, budget)
	}
	body := countRange(false, g.minCount, g.maxCount, g.done)
	return joinRules(rootRule("", body, g.done, g.noResult), item)
}

func (g *TextList) Validate(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if _, err := g.Parse(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

// Parse splits the list into items, dropping bullets, item prefixes and
// blank lines.
func (g *TextList) Parse(content string) ([]string, error) {
	trimmed := strings.TrimSpace(content)
	var items []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, bullet))
		if g.itemPrefix != "" {
			line = strings.TrimSpace(strings.TrimPrefix(line, g.itemPrefix))
		}
		if line != "" {
			items = append(items, line)
		}
	}
	if len(items) == 0 {
		return nil, &ParseError{Content: trimmed, Type: "List", Err: ErrEmptyList}
	}
	return items, nil
}
