package inference

import (
	"slices"
	"strings"
)

type SequenceKind int

const (
	// SequenceDone marks the word a model emits once it has finished.
	SequenceDone SequenceKind = iota + 1
	// SequenceNoResult marks the word standing in for "no answer".
	SequenceNoResult
)

func (k SequenceKind) String() string {
	switch k {
	case SequenceDone:
		return "done"
	case SequenceNoResult:
		return "no_result"
	default:
		return "unknown"
	}
}

type Sequence struct {
	Kind SequenceKind
	Word string
}

// StopSequences is the set of words that halt generation. When Required is
// set a completion must end on one of them.
type StopSequences struct {
	Sequences []Sequence
	Required  bool
}

// SetDone registers word as the done sentinel unless the word is already present.
func (s *StopSequences) SetDone(word string) *StopSequences {
	s.add(SequenceDone, word)
	return s
}

// SetNoResult registers word as the no-result sentinel unless the word is
// already present.
func (s *StopSequences) SetNoResult(word string) *StopSequences {
	s.add(SequenceNoResult, word)
	return s
}

func (s *StopSequences) add(kind SequenceKind, word string) {
	if slices.ContainsFunc(s.Sequences, func(q Sequence) bool { return q.Word == word }) {
		return
	}
	s.Sequences = append(s.Sequences, Sequence{Kind: kind, Word: word})
}

// Reset drops every sequence. The backing array is not reused, so earlier
// snapshots of Sequences stay intact.
func (s *StopSequences) Reset() {
	s.Sequences = nil
	s.Required = false
}

func (s StopSequences) Words() []string {
	words := make([]string, len(s.Sequences))
	for i, q := range s.Sequences {
		words[i] = q.Word
	}
	return words
}

func (s StopSequences) Match(word string) (Sequence, bool) {
	for _, q := range s.Sequences {
		if q.Word == word {
			return q, true
		}
	}
	return Sequence{}, false
}

func (s StopSequences) String() string {
	return strings.Join(s.Words(), ", ")
}
