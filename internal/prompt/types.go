// Package prompt holds the conversation transcript shared by a cascade and
// renders it into the raw prompt text expected by completion backends.
package prompt

import "slices"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Transcript is an append-only list of role-tagged messages.
type Transcript struct {
	messages []Message
}

func NewTranscript(msgs ...Message) Transcript {
	return Transcript{messages: slices.Clone(msgs)}
}

func (t *Transcript) AddSystem(content string) {
	t.messages = append(t.messages, Message{Role: RoleSystem, Content: content})
}

func (t *Transcript) AddUser(content string) {
	t.messages = append(t.messages, Message{Role: RoleUser, Content: content})
}

func (t *Transcript) AddAssistant(content string) {
	t.messages = append(t.messages, Message{Role: RoleAssistant, Content: content})
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	return slices.Clone(t.messages)
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

func (t *Transcript) Clone() Transcript {
	return Transcript{messages: slices.Clone(t.messages)}
}
