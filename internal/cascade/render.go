package cascade

import (
	"fmt"
	"strings"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
	nameColor = "\x1b[38;2;92;244;37m"
)

var roundGradient = []string{
	"\x1b[38;2;230;175;45m",
	"\x1b[38;2;235;158;57m",
	"\x1b[38;2;235;142;68m",
	"\x1b[38;2;232;127;80m",
	"\x1b[38;2;226;114;91m",
	"\x1b[38;2;216;103;100m",
	"\x1b[38;2;204;94;108m",
	"\x1b[38;2;189;88;114m",
	"\x1b[38;2;172;83;118m",
	"\x1b[38;2;153;79;119m",
	"\x1b[38;2;134;76;118m",
	"\x1b[38;2;115;73;114m",
	"\x1b[38;2;97;69;108m",
	"\x1b[38;2;80;65;99m",
	"\x1b[38;2;65;60;88m",
}

var stepGradient = []string{
	"\x1b[38;2;0;142;250m",
	"\x1b[38;2;53;138;249m",
	"\x1b[38;2;77;133;248m",
	"\x1b[38;2;95;128;246m",
	"\x1b[38;2;111;123;243m",
	"\x1b[38;2;125;118;239m",
	"\x1b[38;2;138;112;234m",
	"\x1b[38;2;150;106;228m",
	"\x1b[38;2;160;100;222m",
	"\x1b[38;2;170;93;214m",
	"\x1b[38;2;179;86;206m",
	"\x1b[38;2;187;79;198m",
	"\x1b[38;2;194;71;189m",
	"\x1b[38;2;200;63;179m",
	"\x1b[38;2;206;54;169m",
	"\x1b[38;2;210;45;158m",
	"\x1b[38;2;214;36;147m",
	"\x1b[38;2;216;26;136m",
	"\x1b[38;2;218;13;124m",
	"\x1b[38;2;219;0;113m",
}

// String renders the cascade with ANSI colors for terminal output.
func (c *Cascade) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s%s%s%s\n\n", ansiBold, nameColor, c.Name, ansiReset)
	for i, r := range c.rounds {
		color := roundGradient[i%len(roundGradient)]
		fmt.Fprintf(&b, "%s%sRound %d%s\n", ansiBold, color, i+1, ansiReset)
		b.WriteString(r.String())
		b.WriteString("\n")
	}
	return b.String()
}

// String renders the round's task and steps with ANSI colors. Pending steps
// are listed separately while the round is unresolved.
func (r *Round) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s%stask%s: '%s'\n", ansiBold, stepGradient[len(stepGradient)-1], ansiReset, r.Task)

	if len(r.pending) > 0 {
		fmt.Fprintf(&b, "%spending steps%s\n", ansiBold, ansiReset)
		writeSteps(&b, r.pending)
		b.WriteString("\n")
		if len(r.resolved) > 0 {
			fmt.Fprintf(&b, "%sresolved steps%s\n", ansiBold, ansiReset)
		}
	}
	writeSteps(&b, r.resolved)
	return b.String()
}

func writeSteps(b *strings.Builder, steps []Step) {
	for i, s := range steps {
		color := stepGradient[i%len(stepGradient)]
		outcome, err := s.DisplayOutcome()
		if err != nil {
			outcome = "No outcome"
		}
		fmt.Fprintf(b, "\n%s%sstep %d%s: '%s'\n", ansiBold, color, i+1, ansiReset, outcome)
	}
}
