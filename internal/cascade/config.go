package cascade

import (
	"strconv"

	"github.com/samcharles93/cascade/internal/grammar"
)

const (
	DefaultDoneSentinel = "Done."
	// DefaultMaxFailures is how many failed step attempts a round tolerates
	// before it rolls back.
	DefaultMaxFailures = 3
)

// StepConfig configures a single step. Empty strings mean "not set".
type StepConfig struct {
	Prefix           string
	DoneSentinel     string
	NoResultSentinel string
	UseCounter       bool
	CachePrompt      bool
	Grammar          grammar.Grammar
}

func DefaultStepConfig() StepConfig {
	return StepConfig{
		DoneSentinel: DefaultDoneSentinel,
		CachePrompt:  true,
		Grammar:      grammar.NewText(),
	}
}

// DisplayPrefix renders the step label for position n.
func (c StepConfig) DisplayPrefix(n int) (string, bool) {
	switch {
	case c.UseCounter && c.Prefix != "":
		return strconv.Itoa(n) + " " + c.Prefix, true
	case c.UseCounter:
		return strconv.Itoa(n), true
	case c.Prefix != "":
		return c.Prefix, true
	default:
		return "", false
	}
}
