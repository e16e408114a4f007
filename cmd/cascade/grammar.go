package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cascade/internal/flowdef"
	"github.com/samcharles93/cascade/internal/grammar"
)

func grammarCmd() *cli.Command {
	return &cli.Command{
		Name:  "grammar",
		Usage: "Print the GBNF source of a grammar",
		Commands: []*cli.Command{
			grammarSubcommand("integer", "Unsigned integer within bounds", integerFlags()),
			grammarSubcommand("sentences", "One or more sentences", sentencesFlags()),
			grammarSubcommand("list", "Bulleted list of single-line items", listFlags()),
			grammarSubcommand("text", "Free text within a character budget", textFlags()),
			grammarSubcommand("words", "Lowercase words", wordsFlags()),
			grammarSubcommand("boolean", "true or false", nil),
			grammarSubcommand("exact", "One of a fixed set of strings", []cli.Flag{
				&cli.StringSliceFlag{Name: "option", Aliases: []string{"o"}, Usage: "allowed string (repeatable)", Required: true},
			}),
			grammarSubcommand("url", "An http(s) URL", nil),
		},
	}
}

func grammarSubcommand(kind, usage string, flags []cli.Flag) *cli.Command {
	return &cli.Command{
		Name:  kind,
		Usage: usage,
		Flags: append(flags,
			&cli.StringFlag{Name: "done", Usage: "done sentinel appended to the grammar"},
			&cli.StringFlag{Name: "no-result", Usage: "sentinel the model may emit instead of a value"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printGrammar(stdout, grammarSpec(kind, cmd), cmd.String("done"), cmd.String("no-result"))
		},
	}
}

func printGrammar(w io.Writer, spec flowdef.Grammar, done, noResult string) error {
	g, err := spec.Build()
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	if done != "" && done == noResult {
		return cli.Exit("error: --done and --no-result must differ", 1)
	}
	g.SetDoneSentinel(done)
	g.SetNoResultSentinel(noResult)
	_, err = fmt.Fprintln(w, g.Source())
	return err
}

// grammarSpec maps subcommand flags onto a flow definition grammar so the
// CLI shares its validation.
func grammarSpec(kind string, cmd *cli.Command) flowdef.Grammar {
	spec := flowdef.Grammar{Kind: kind}
	switch kind {
	case "integer":
		spec.Kind = string(grammar.KindInteger)
		spec.Lower = uint32Flag(cmd, "lower")
		spec.Upper = uint32Flag(cmd, "upper")
	case "sentences":
		spec.Kind = string(grammar.KindSentences)
		spec.MinCount = uint8Flag(cmd, "min")
		spec.MaxCount = uint8Flag(cmd, "max")
		spec.TokenLength = uint32Flag(cmd, "tokens")
		if cmd.IsSet("lowercase-first") {
			capitalize := !cmd.Bool("lowercase-first")
			spec.CapitalizeFirst = &capitalize
		}
		if cmd.IsSet("concatenator") {
			s := cmd.String("concatenator")
			spec.Concatenator = &s
		}
		spec.Disallow = cmd.String("disallow")
	case "list":
		spec.Kind = string(grammar.KindTextList)
		spec.MinCount = uint8Flag(cmd, "min")
		spec.MaxCount = uint8Flag(cmd, "max")
		spec.TokenLength = uint32Flag(cmd, "tokens")
		spec.ItemPrefix = cmd.String("item-prefix")
		spec.Disallow = cmd.String("disallow")
	case "text":
		spec.Kind = string(grammar.KindText)
		spec.TokenLength = uint32Flag(cmd, "tokens")
		spec.AllowNewline = cmd.Bool("allow-newline")
		spec.Disallow = cmd.String("disallow")
	case "words":
		spec.Kind = string(grammar.KindWords)
		spec.MinCount = uint8Flag(cmd, "min")
		spec.MaxCount = uint8Flag(cmd, "max")
		spec.WordLength = uint8Flag(cmd, "word-length")
		if cmd.IsSet("concatenator") {
			s := cmd.String("concatenator")
			spec.Concatenator = &s
		}
	case "boolean":
		spec.Kind = string(grammar.KindBoolean)
	case "exact":
		spec.Kind = string(grammar.KindExactString)
		spec.Options = cmd.StringSlice("option")
	case "url":
		spec.Kind = string(grammar.KindURL)
	}
	return spec
}

func uint32Flag(cmd *cli.Command, name string) *uint32 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := uint32(cmd.Uint(name))
	return &v
}

func uint8Flag(cmd *cli.Command, name string) *uint8 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := uint8(min(cmd.Uint(name), 255))
	return &v
}

func integerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{Name: "lower", Usage: "lower bound", Value: 1},
		&cli.UintFlag{Name: "upper", Usage: "upper bound (must be above lower)", Value: 9},
	}
}

func countFlags(minDefault, maxDefault uint) []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{Name: "min", Usage: "minimum item count", Value: minDefault},
		&cli.UintFlag{Name: "max", Usage: "maximum item count", Value: maxDefault},
	}
}

func sentencesFlags() []cli.Flag {
	return append(countFlags(1, 1),
		&cli.UintFlag{Name: "tokens", Usage: "token budget per sentence", Value: 50},
		&cli.BoolFlag{Name: "lowercase-first", Usage: "let the first sentence start lowercase"},
		&cli.StringFlag{Name: "concatenator", Usage: "text between sentences", Value: " "},
		&cli.StringFlag{Name: "disallow", Usage: "characters the sentences may not contain"},
	)
}

func listFlags() []cli.Flag {
	return append(countFlags(1, 5),
		&cli.UintFlag{Name: "tokens", Usage: "token budget per item", Value: 50},
		&cli.StringFlag{Name: "item-prefix", Usage: "literal written after each bullet"},
		&cli.StringFlag{Name: "disallow", Usage: "characters the items may not contain"},
	)
}

func textFlags() []cli.Flag {
	return []cli.Flag{
		&cli.UintFlag{Name: "tokens", Usage: "token budget", Value: 200},
		&cli.BoolFlag{Name: "allow-newline", Usage: "allow line breaks"},
		&cli.StringFlag{Name: "disallow", Usage: "characters the text may not contain"},
	}
}

func wordsFlags() []cli.Flag {
	return append(countFlags(1, 3),
		&cli.UintFlag{Name: "word-length", Usage: "maximum letters per word", Value: 12},
		&cli.StringFlag{Name: "concatenator", Usage: "text between words", Value: " "},
	)
}
