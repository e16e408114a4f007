package prompt

import (
	"errors"
	"fmt"
	"strings"
)

type Format string

const (
	FormatChatML  Format = "chatml"
	FormatLlama3  Format = "llama3"
	FormatMistral Format = "mistral"
	FormatGemma   Format = "gemma"
	FormatRaw     Format = "raw"
)

var ErrUnknownFormat = errors.New("unknown chat format")

// Formats lists every supported chat format.
func Formats() []Format {
	return []Format{FormatChatML, FormatLlama3, FormatMistral, FormatGemma, FormatRaw}
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatChatML, FormatLlama3, FormatMistral, FormatGemma, FormatRaw:
		return f, nil
	case "":
		return FormatChatML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type RenderOptions struct {
	Format   Format
	Messages []Message
	// GenerationPrefix is written at the start of the open assistant turn.
	GenerationPrefix string
	// OmitBOS drops the begin-of-sequence marker for servers that add it.
	OmitBOS bool
}

// Render turns the messages into a single prompt that ends inside an open
// assistant turn, so the model continues from the generation prefix.
func Render(opts RenderOptions) (string, error) {
	switch opts.Format {
	case FormatChatML, "":
		return renderChatML(opts), nil
	case FormatLlama3:
		return renderLlama3(opts), nil
	case FormatMistral:
		return renderMistral(opts)
	case FormatGemma:
		return renderGemma(opts)
	case FormatRaw:
		return renderRaw(opts), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func renderRaw(opts RenderOptions) string {
	var b strings.Builder
	for _, m := range opts.Messages {
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(opts.GenerationPrefix)
	return b.String()
}

// splitSystem pulls a leading system message off for formats without a
// system role.
func splitSystem(msgs []Message) (string, []Message) {
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		return msgs[0].Content, msgs[1:]
	}
	return "", msgs
}
