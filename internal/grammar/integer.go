package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// Integer constrains output to an unsigned integer within its bounds.
type Integer struct {
	base
	lower uint32
	upper uint32
}

func NewInteger() *Integer {
	return &Integer{lower: 1, upper: 9}
}

func (g *Integer) Kind() Kind { return KindInteger }

func (g *Integer) LowerBound() uint32 { return g.lower }
func (g *Integer) UpperBound() uint32 { return g.upper }

func (g *Integer) SetLowerBound(v uint32) *Integer {
	if g.lower != v {
		g.lower = v
		g.invalidate()
	}
	return g
}

func (g *Integer) SetUpperBound(v uint32) *Integer {
	if g.upper != v {
		g.upper = v
		g.invalidate()
	}
	return g
}

// Source panics when the upper bound is not above the lower bound.
func (g *Integer) Source() string {
	return g.memo(func() string {
		return IntegerSource(g.lower, g.upper, g.done, g.noResult)
	})
}

func (g *Integer) Validate(content string) (string, error) {
	content = strings.TrimSpace(content)
	if _, err := g.Parse(content); err != nil {
		return "", parseError(content, "u32")
	}
	return content, nil
}

func (g *Integer) Parse(content string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(content), 10, 32)
	if err != nil {
		return 0, parseError(content, "u32")
	}
	return uint32(v), nil
}

// IntegerSource compiles the integer grammar for the given bounds.
func IntegerSource(lower, upper uint32, done, noResult string) string {
	switch {
	case upper < lower:
		panic("grammar: upper bound must be greater than or equal to lower bound")
	case upper == lower:
		panic("grammar: bounds must not be the same")
	}
	return rootRule(`" " `, digitRange(lower, upper, done), done, noResult)
}

// digitRange emits one character class per digit of upper. Positions whose
// place value exceeds lower become optional, or may be replaced by the done
// sentinel to end the number early.
func digitRange(lower, upper uint32, done string) string {
	digits := len(strconv.FormatUint(uint64(upper), 10))
	if digits == 1 {
		return fmt.Sprintf("[%d-%d]", lower, upper)
	}

	var sb strings.Builder
	place := uint64(1)
	for i := 1; i <= digits; i++ {
		if i > 1 && place > uint64(lower) {
			if done != "" {
				sb.WriteString("([0-9] | " + literal(" "+done) + ")")
			} else {
				sb.WriteString("[0-9]?")
			}
		} else {
			sb.WriteString("[0-9]")
		}
		place *= 10
	}
	return sb.String()
}
