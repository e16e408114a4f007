package grammar

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samcharles93/cascade/internal/logger"
)

// lineSeparators are never allowed inside a single item.
var lineSeparators = []rune{'\r', '\n', '\v', '\f', '\u0085', '\u2028', '\u2029'}

// charBudget estimates how many characters a token budget covers, saturating
// at math.MaxUint32.
func charBudget(tokens uint32) uint32 {
	return uint32(min(math.Floor(float64(tokens)*4.5), math.MaxUint32))
}

// countRange bounds a repeated item production by min and max.
//
// A mandatory run of min items is followed by an optional tail of max-min
// slots. With a done sentinel each optional slot may be the sentinel instead,
// letting the model stop anywhere in the tail. When first is set the first
// item uses the separate "first" rule.
func countRange(first bool, minCount, maxCount uint8, done string) string {
	if maxCount < minCount {
		logger.Default().Warn("max count below min count, using min count", "min", minCount, "max", maxCount)
		maxCount = minCount
	}
	head := "item"
	if first {
		head = "first"
	}
	// Zero items collapses to one optional item rather than an empty production.
	if minCount == 0 && maxCount <= 1 {
		return head + "{0,1}"
	}

	var sb strings.Builder
	optional := int(maxCount) - int(minCount)
	switch {
	case minCount > 0 && first:
		sb.WriteString("first ")
		if minCount > 1 {
			fmt.Fprintf(&sb, "item{%d} ", minCount-1)
		}
	case minCount > 0:
		fmt.Fprintf(&sb, "item{%d} ", minCount)
	case first:
		if done != "" {
			fmt.Fprintf(&sb, "( first | %s ){0,1} ", literal(done))
		} else {
			sb.WriteString("first{0,1} ")
		}
		optional--
	}
	if optional > 0 {
		if done != "" {
			fmt.Fprintf(&sb, "( item | %s ){0,%d}", literal(done), optional)
		} else {
			fmt.Fprintf(&sb, "item{0,%d}", optional)
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

// disallowedClass renders a negated character class over chars plus the line
// separators.
func disallowedClass(chars []rune) string {
	set := make([]rune, 0, len(chars)+len(lineSeparators))
	set = append(set, chars...)
	set = append(set, lineSeparators...)
	slices.Sort(set)
	set = slices.Compact(set)

	var sb strings.Builder
	sb.WriteString("[^")
	for _, r := range set {
		sb.WriteString(classChar(r))
	}
	sb.WriteString("]")
	return sb.String()
}

func classChar(r rune) string {
	switch r {
	case '\r':
		return `\r`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\\', ']', '[', '^', '-':
		return `\` + string(r)
	}
	switch {
	case r < 0x20 || (r >= 0x7f && r <= 0x9f):
		return fmt.Sprintf(`\x%02X`, r)
	case r == '\u2028' || r == '\u2029':
		return fmt.Sprintf(`\u%04X`, r)
	}
	return string(r)
}

// quoteAlternatives returns the quote characters still allowed to open or
// close an item, or false when both are disallowed.
func quoteAlternatives(disallowed []rune) (string, bool) {
	double := slices.Contains(disallowed, '"')
	single := slices.Contains(disallowed, '\'')
	switch {
	case double && single:
		return "", false
	case double:
		return `"'"`, true
	case single:
		return `"\""`, true
	default:
		return `( "\"" | "'" )`, true
	}
}
