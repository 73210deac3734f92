package models

// ToolCall is a single tool invocation requested by the model. Result is
// filled in by the agent loop once the fixture has been resolved.
type ToolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result,omitempty"`
}

// Turn is one assistant response.
type Turn struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"tool_calls"`

	// Raw carries provider diagnostics (id, stop reason, usage). Only
	// Raw["usage"] is read by the loop.
	Raw map[string]any `json:"raw,omitempty"`
}

// HasToolCalls reports whether the model asked for any tool.
func (t *Turn) HasToolCalls() bool {
	return t != nil && len(t.ToolCalls) > 0
}

// Conversation is the full multi-turn trace of one scenario run.
type Conversation struct {
	SystemPrompt      string   `json:"system_prompt"`
	UserMessages      []string `json:"user_messages"`
	Turns             []*Turn  `json:"turns"`
	TotalInputTokens  int      `json:"total_input_tokens"`
	TotalOutputTokens int      `json:"total_output_tokens"`

	// HitTurnLimit is set when the loop stopped at its turn ceiling rather
	// than on a text-only response.
	HitTurnLimit bool `json:"hit_turn_limit,omitempty"`
}

// NewConversation returns an empty conversation seeded with the prompts.
func NewConversation(systemPrompt, userMessage string) *Conversation {
	return &Conversation{
		SystemPrompt: systemPrompt,
		UserMessages: []string{userMessage},
		Turns:        []*Turn{},
	}
}

// ToolCalls flattens every tool call in turn order.
func (c *Conversation) ToolCalls() []*ToolCall {
	var calls []*ToolCall
	for _, turn := range c.Turns {
		calls = append(calls, turn.ToolCalls...)
	}
	return calls
}

// ToolSequence returns the names of every tool called, in order.
func (c *Conversation) ToolSequence() []string {
	seq := []string{}
	for _, tc := range c.ToolCalls() {
		seq = append(seq, tc.ToolName)
	}
	return seq
}

// FirstToolCall returns the first call of the first turn that made any
// calls, or nil.
func (c *Conversation) FirstToolCall() *ToolCall {
	for _, turn := range c.Turns {
		if turn.HasToolCalls() {
			return turn.ToolCalls[0]
		}
	}
	return nil
}

// ToolWasCalled reports whether name appears anywhere in the sequence.
func (c *Conversation) ToolWasCalled(name string) bool {
	return indexOf(c.ToolSequence(), name) >= 0
}

// ToolCalledBefore compares first occurrences only. It is false when either
// tool was never called.
func (c *Conversation) ToolCalledBefore(first, second string) bool {
	seq := c.ToolSequence()
	i, j := indexOf(seq, first), indexOf(seq, second)
	if i < 0 || j < 0 {
		return false
	}
	return i < j
}

// FinalText is the content of the last turn.
func (c *Conversation) FinalText() string {
	if len(c.Turns) == 0 {
		return ""
	}
	return c.Turns[len(c.Turns)-1].Content
}

func indexOf(seq []string, name string) int {
	for i, s := range seq {
		if s == name {
			return i
		}
	}
	return -1
}
