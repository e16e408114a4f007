package inference

import "strings"

// endTokens are chat template markers some servers leak into content.
var endTokens = []string{
	"<|im_end|>",
	"<|endoftext|>",
	"<|end_of_text|>",
	"<|eot_id|>",
	"<end_of_turn>",
	"</s>",
}

// SanitizeCompletion removes reasoning blocks and template end markers from
// generated text before it is validated against a grammar.
func SanitizeCompletion(text string) string {
	s := stripThinkBlocks(text)
	for _, token := range endTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	return strings.TrimSpace(s)
}

func stripThinkBlocks(text string) string {
	source := text
	lower := strings.ToLower(source)
	const (
		openTag  = "<think>"
		closeTag = "</think>"
	)

	var b strings.Builder
	cursor := 0
	for cursor < len(source) {
		start := strings.Index(lower[cursor:], openTag)
		if start < 0 {
			b.WriteString(source[cursor:])
			break
		}
		start += cursor
		b.WriteString(source[cursor:start])

		thinkStart := start + len(openTag)
		end := strings.Index(lower[thinkStart:], closeTag)
		if end < 0 {
			break // drop unclosed think block tail
		}
		cursor = thinkStart + end + len(closeTag)
	}
	return b.String()
}
