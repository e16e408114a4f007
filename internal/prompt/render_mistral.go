package prompt

import (
	"fmt"
	"strings"
)

// validateAlternation requires user and assistant turns to alternate,
// starting and ending with a user turn.
func validateAlternation(format Format, msgs []Message) error {
	for i, m := range msgs {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if m.Role != want {
			return fmt.Errorf("%s: conversation roles must alternate user/assistant, got %q at %d", format, m.Role, i)
		}
	}
	if len(msgs) > 0 && msgs[len(msgs)-1].Role != RoleUser {
		return fmt.Errorf("%s: conversation must end with a user turn", format)
	}
	return nil
}

func renderMistral(opts RenderOptions) (string, error) {
	system, msgs := splitSystem(opts.Messages)
	if err := validateAlternation(FormatMistral, msgs); err != nil {
		return "", err
	}

	var b strings.Builder
	if !opts.OmitBOS {
		b.WriteString("<s>")
	}
	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
			b.WriteString("[INST] ")
			if i == 0 && system != "" {
				b.WriteString(system)
				b.WriteString("\n\n")
			}
			b.WriteString(strings.TrimSpace(m.Content))
			b.WriteString(" [/INST]")
		case RoleAssistant:
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(m.Content))
			b.WriteString("</s>")
		}
	}
	b.WriteString(opts.GenerationPrefix)
	return b.String(), nil
}

func renderGemma(opts RenderOptions) (string, error) {
	system, msgs := splitSystem(opts.Messages)
	if err := validateAlternation(FormatGemma, msgs); err != nil {
		return "", err
	}

	var b strings.Builder
	if !opts.OmitBOS {
		b.WriteString("<bos>")
	}
	for i, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		b.WriteString("<start_of_turn>")
		b.WriteString(role)
		b.WriteString("\n")
		if i == 0 && system != "" {
			b.WriteString(system)
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("<end_of_turn>\n")
	}
	b.WriteString("<start_of_turn>model\n")
	b.WriteString(opts.GenerationPrefix)
	return b.String(), nil
}
