package prompt

import "strings"

func renderChatML(opts RenderOptions) string {
	var b strings.Builder
	for _, m := range opts.Messages {
		b.WriteString("<|im_start|>")
		b.WriteString(string(m.Role))
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	b.WriteString(opts.GenerationPrefix)
	return b.String()
}

func renderLlama3(opts RenderOptions) string {
	var b strings.Builder
	if !opts.OmitBOS {
		b.WriteString("<|begin_of_text|>")
	}
	for _, m := range opts.Messages {
		b.WriteString("<|start_header_id|>")
		b.WriteString(string(m.Role))
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	b.WriteString(opts.GenerationPrefix)
	return b.String()
}
