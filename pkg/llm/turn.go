package llm

// Turn roles. The "model" role covers both chat-style "assistant" replies and
// raw completion output; providers map it to whatever their API expects.
const (
	RoleSystem = "system"
	RoleUser   = "user"
	RoleModel  = "model"
)

// Turn is a single entry in a conversation: who said it, what was said, and
// where it sits in the exchange order.
type Turn struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// NewTurn creates a turn with the given role, text, and ordinal index.
func NewTurn(role, text string, index int) Turn {
	return Turn{Role: role, Text: text, Index: index}
}

// Conversation is an append-only ordered sequence of turns.
type Conversation struct {
	turns []Turn
}

// Append adds a turn to the end of the conversation, assigning the next
// ordinal index.
func (c *Conversation) Append(role, text string) {
	c.turns = append(c.turns, NewTurn(role, text, len(c.turns)))
}

// Turns returns a copy of all turns in original order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Last returns the most recent turn as a single-element slice, or nil for an
// empty conversation.
func (c *Conversation) Last() []Turn {
	if len(c.turns) == 0 {
		return nil
	}
	return []Turn{c.turns[len(c.turns)-1]}
}

// Len returns the number of turns recorded so far.
func (c *Conversation) Len() int {
	return len(c.turns)
}
