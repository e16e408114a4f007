// Package grammar compiles small parameter sets into GBNF grammar sources
// for constrained decoding, and validates generated text against the same
// rules.
//
// Every grammar kind shares the same sentinel handling: an optional "done"
// word that lets the model terminate early and an optional "no result" word
// that stands in for the whole value.
package grammar

import "strings"

type Kind string

const (
	KindBoolean     Kind = "boolean"
	KindInteger     Kind = "integer"
	KindText        Kind = "text"
	KindSentences   Kind = "sentences"
	KindTextList    Kind = "text_list"
	KindWords       Kind = "words"
	KindExactString Kind = "exact_string"
	KindURL         Kind = "url"
)

// Grammar is implemented by the kinds in this package only.
type Grammar interface {
	Kind() Kind
	// Source returns the compiled grammar. It is computed once and reused
	// until a parameter changes.
	Source() string
	// Validate checks raw generated text and returns its cleaned form.
	Validate(content string) (string, error)

	DoneSentinel() string
	NoResultSentinel() string
	SetDoneSentinel(word string)
	SetNoResultSentinel(word string)

	sealed()
}

// base carries the sentinel words and the memoized source shared by all kinds.
type base struct {
	done     string
	noResult string

	source   string
	compiled bool
}

func (b *base) sealed() {}

func (b *base) DoneSentinel() string     { return b.done }
func (b *base) NoResultSentinel() string { return b.noResult }

func (b *base) SetDoneSentinel(word string) {
	if b.done != word {
		b.done = word
		b.invalidate()
	}
}

func (b *base) SetNoResultSentinel(word string) {
	if b.noResult != word {
		b.noResult = word
		b.invalidate()
	}
}

func (b *base) invalidate() {
	b.source = ""
	b.compiled = false
}

func (b *base) memo(build func() string) string {
	if !b.compiled {
		b.source = build()
		b.compiled = true
	}
	return b.source
}

// rootRule wraps body in the entry rule for the four sentinel combinations.
// lead is emitted verbatim before the body (some kinds start with a literal
// space).
func rootRule(lead, body, done, noResult string) string {
	var sb strings.Builder
	sb.WriteString("root ::= ")
	sb.WriteString(lead)
	switch {
	case done != "" && noResult != "":
		sb.WriteString("( " + body + " | " + literal(noResult) + " ) " + literal(" "+done))
	case noResult != "":
		sb.WriteString("( " + body + " | " + literal(noResult) + " )")
	case done != "":
		sb.WriteString(body + " " + literal(" "+done))
	default:
		sb.WriteString(body)
	}
	return sb.String()
}

// literal quotes s as a grammar string literal.
func literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func joinRules(rootRule string, rules ...string) string {
	if len(rules) == 0 {
		return rootRule
	}
	return rootRule + "\n\n" + strings.Join(rules, "\n\n")
}
