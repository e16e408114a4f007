package grammar

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	sentenceQuotes = `( "\"" | "'" )`
	sentenceClass  = `[^\n\x0B\x0C\r!.?\x85\u2028\u2029]`
	sentenceEnd    = `("." | "?" | "!" | "." ` + sentenceQuotes + ` | "?" ` + sentenceQuotes + ` | "!" ` + sentenceQuotes + `)`
)

func sentenceRule(name, start string) string {
	return name + ` ::= (` + sentenceQuotes + ` | ` + start + `) ` + sentenceClass + `{1,225} [a-z] ` + sentenceEnd + ` " "`
}

func TestSentencesSource(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		build    func() *Sentences
		done     string
		noResult string
		want     string
	}{
		{
			name:  "defaults",
			build: NewSentences,
			want:  "root ::= item{1}\n\n" + sentenceRule("item", "[A-Z]"),
		},
		{
			name: "range-with-done",
			build: func() *Sentences {
				return NewSentences().SetMinCount(1).SetMaxCount(3)
			},
			done: "Done.",
			want: `root ::= item{1} ( item | "Done." ){0,2} " Done."` + "\n\n" + sentenceRule("item", "[A-Z]"),
		},
		{
			name: "lowercase-first",
			build: func() *Sentences {
				return NewSentences().SetCapitalizeFirst(false).SetMinCount(2).SetMaxCount(4)
			},
			want: "root ::= first item{1} item{0,2}\n\n" +
				sentenceRule("first", "[a-z]") + "\n\n" +
				sentenceRule("item", "[A-Z]"),
		},
		{
			name: "lowercase-first-optional",
			build: func() *Sentences {
				return NewSentences().SetCapitalizeFirst(false).SetMinCount(0).SetMaxCount(3)
			},
			done: "Done.",
			want: `root ::= ( first | "Done." ){0,1} ( item | "Done." ){0,2} " Done."` + "\n\n" +
				sentenceRule("first", "[a-z]") + "\n\n" +
				sentenceRule("item", "[A-Z]"),
		},
		{
			name: "zero-count",
			build: func() *Sentences {
				return NewSentences().SetMinCount(0).SetMaxCount(0)
			},
			noResult: "None.",
			want:     `root ::= ( item{0,1} | "None." )` + "\n\n" + sentenceRule("item", "[A-Z]"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := tc.build()
			g.SetDoneSentinel(tc.done)
			g.SetNoResultSentinel(tc.noResult)
			if diff := cmp.Diff(tc.want, g.Source()); diff != "" {
				t.Fatalf("source mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSentencesQuoteHandling(t *testing.T) {
	t.Parallel()

	src := NewSentences().Disallow('"').Source()
	if strings.Contains(src, `"\""`) {
		t.Fatalf("double quote should not be offered once disallowed:\n%s", src)
	}
	if !strings.Contains(src, `("'" | [A-Z])`) {
		t.Fatalf("single quote should still open a sentence:\n%s", src)
	}

	src = NewSentences().Disallow('"', '\'').Source()
	if !strings.Contains(src, `item ::= [A-Z] `) {
		t.Fatalf("expected quote-free sentence when both quotes are disallowed:\n%s", src)
	}
	if !strings.Contains(src, `("." | "?" | "!") " "`) {
		t.Fatalf("expected plain terminal punctuation:\n%s", src)
	}
}

func TestSentencesConcatenatorEscaped(t *testing.T) {
	t.Parallel()

	src := NewSentences().SetConcatenator("\"\n").Source()
	if !strings.HasSuffix(src, `"\"`+"\n"+`"`) {
		t.Fatalf("concatenator not quoted as a literal:\n%s", src)
	}
}

func TestSentencesParse(t *testing.T) {
	t.Parallel()

	g := NewSentences()
	got, err := g.Parse("  Hello there. How are you?  \n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != "Hello there. How are you?" {
		t.Fatalf("got %q", got)
	}

	_, err = g.Validate(" \n\t")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Type != "String" {
		t.Fatalf("expected String parse error, got %v", err)
	}
}

func TestSentencesSetterInvalidates(t *testing.T) {
	t.Parallel()

	g := NewSentences()
	before := g.Source()
	g.SetTokenLength(10)
	after := g.Source()
	if before == after {
		t.Fatal("token length change should recompile")
	}
	if !strings.Contains(after, "{1,45}") {
		t.Fatalf("expected 45 character budget:\n%s", after)
	}
}
