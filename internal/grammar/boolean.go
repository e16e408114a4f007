package grammar

import "strings"

type Boolean struct {
	base
}

func NewBoolean() *Boolean {
	return &Boolean{}
}

func (g *Boolean) Kind() Kind { return KindBoolean }

func (g *Boolean) Source() string {
	return g.memo(func() string {
		if g.noResult != "" {
			// The no-result word joins the true/false alternation directly.
			body := `( "true" | "false" | ` + literal(g.noResult) + ` )`
			return rootRule(`" " `, body, g.done, "")
		}
		return rootRule(`" " `, `( "true" | "false" )`, g.done, "")
	})
}

func (g *Boolean) Validate(content string) (string, error) {
	content = strings.TrimSpace(content)
	if _, err := g.Parse(content); err != nil {
		return "", err
	}
	return content, nil
}

func (g *Boolean) Parse(content string) (bool, error) {
	switch strings.TrimSpace(content) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, parseError(content, "boolean")
}
