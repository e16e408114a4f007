package grammar

import (
	"math"
	"strings"
	"testing"
)

func TestRootRuleSentinelCombinations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		done, noResult string
		want           string
	}{
		{"done", "NR", `root ::= ( BODY | "NR" ) " done"`},
		{"", "NR", `root ::= ( BODY | "NR" )`},
		{"done", "", `root ::= BODY " done"`},
		{"", "", `root ::= BODY`},
	}
	for _, tc := range cases {
		if got := rootRule("", "BODY", tc.done, tc.noResult); got != tc.want {
			t.Fatalf("rootRule(%q, %q) = %q, want %q", tc.done, tc.noResult, got, tc.want)
		}
	}
}

func TestLiteralEscapes(t *testing.T) {
	t.Parallel()

	if got, want := literal(`say "hi" \o/`), `"say \"hi\" \\o/"`; got != want {
		t.Fatalf("literal = %s, want %s", got, want)
	}
}

func TestKindsImplementGrammar(t *testing.T) {
	t.Parallel()

	grammars := []Grammar{
		NewBoolean(),
		NewInteger(),
		NewText(),
		NewSentences(),
		NewTextList(),
		NewWords(),
		NewExactString("yes", "no"),
		NewURL(),
	}
	seen := map[Kind]bool{}
	for _, g := range grammars {
		if seen[g.Kind()] {
			t.Fatalf("duplicate kind %q", g.Kind())
		}
		seen[g.Kind()] = true

		g.SetDoneSentinel("Done.")
		g.SetNoResultSentinel("None.")
		if g.DoneSentinel() != "Done." || g.NoResultSentinel() != "None." {
			t.Fatalf("%s: sentinels not stored", g.Kind())
		}
		src := g.Source()
		if !strings.HasPrefix(src, "root ::= ") {
			t.Fatalf("%s: source missing root rule: %s", g.Kind(), src)
		}
		if !strings.Contains(src, `"None."`) {
			t.Fatalf("%s: source missing no-result word: %s", g.Kind(), src)
		}
		if !strings.Contains(strings.SplitN(src, "\n", 2)[0], `" Done."`) {
			t.Fatalf("%s: root rule missing done suffix: %s", g.Kind(), src)
		}
	}
}

func TestBooleanSource(t *testing.T) {
	t.Parallel()

	g := NewBoolean()
	if got, want := g.Source(), `root ::= " " ( "true" | "false" )`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	g.SetNoResultSentinel("NR")
	g.SetDoneSentinel("done")
	if got, want := g.Source(), `root ::= " " ( "true" | "false" | "NR" ) " done"`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	v, err := g.Parse(" true\n")
	if err != nil || !v {
		t.Fatalf("Parse(true) = %v, %v", v, err)
	}
	if _, err := g.Parse("yes"); err == nil {
		t.Fatal("expected parse failure for yes")
	}
}

func TestWordsSource(t *testing.T) {
	t.Parallel()

	g := NewWords()
	want := `root ::= " " item{1} item{0,2}` + "\n\n" + `item ::= [a-z]{1,12} " "`
	if got := g.Source(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	got, err := g.Parse(" - red apple. ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != "red apple." {
		t.Fatalf("Parse = %q", got)
	}
}

func TestTextSource(t *testing.T) {
	t.Parallel()

	g := NewText().SetTokenLength(10)
	want := "root ::= item{0,45}\n\n" + `item ::= [^\n\x0B\x0C\r\x85\u2028\u2029]`
	if got := g.Source(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	g.SetDoneSentinel("Done.")
	if got := g.Source(); !strings.HasPrefix(got, `root ::= item{1,45} " Done."`) {
		t.Fatalf("done sentinel should require at least one character: %q", got)
	}

	g.SetAllowNewline(true)
	if got := g.Source(); !strings.HasSuffix(got, `item ::= [^\x00]`) {
		t.Fatalf("expected permissive class with newlines allowed: %q", got)
	}

	if _, err := g.Parse("  \n "); err == nil {
		t.Fatal("expected empty text to fail")
	}
}

func TestExactStringSource(t *testing.T) {
	t.Parallel()

	g := NewExactString("red", "green", "red")
	if got := len(g.Options()); got != 2 {
		t.Fatalf("expected duplicates to be skipped, got %d options", got)
	}
	if got, want := g.Source(), `root ::= ( "red" | "green" )`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	g.Add("blue")
	if got, want := g.Source(), `root ::= ( "red" | "green" | "blue" )`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if v, err := g.Parse(" blue "); err != nil || v != "blue" {
		t.Fatalf("Parse(blue) = %q, %v", v, err)
	}
	if _, err := g.Parse("purple"); err == nil {
		t.Fatal("expected unknown option to fail")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic with no options")
		}
	}()
	NewExactString().Source()
}

func TestURLParse(t *testing.T) {
	t.Parallel()

	g := NewURL()
	if src := g.Source(); !strings.HasPrefix(src, `root ::= " " url`+"\n") {
		t.Fatalf("unexpected source: %s", src)
	}
	u, err := g.Parse(" https://example.com/a/b ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Host != "example.com" {
		t.Fatalf("host = %q", u.Host)
	}
	for _, bad := range []string{"example.com", "ftp://example.com", "https://"} {
		if _, err := g.Parse(bad); err == nil {
			t.Fatalf("expected %q to fail", bad)
		}
	}
}

func TestCharBudgetSaturates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tokens uint32
		want   uint32
	}{
		{0, 0},
		{1, 4},
		{50, 225},
		{954437176, 4294967292},
		{954437177, math.MaxUint32},
		{math.MaxUint32, math.MaxUint32},
	}
	for _, tc := range cases {
		if got := charBudget(tc.tokens); got != tc.want {
			t.Errorf("charBudget(%d) = %d, want %d", tc.tokens, got, tc.want)
		}
	}

	g := NewText()
	g.SetTokenLength(math.MaxUint32)
	if src := g.Source(); !strings.Contains(src, "item{0,4294967295}") {
		t.Fatalf("expected saturated character budget in %q", src)
	}
}
