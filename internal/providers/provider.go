// Package providers adapts model vendors to one conversational interface.
// Each family (Anthropic, OpenAI, Gemini) is a single implementation
// parameterized by a Config; direct-API, Vertex and Bedrock variants differ
// only by configuration.
package providers

import (
	"context"
	"fmt"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

//go:generate go tool mockgen -package mocks -destination mocks/mock_provider.go . Provider

// Provider sends a conversation to one model and formats history entries in
// the shape that model expects.
type Provider interface {
	Name() models.ProviderName
	Model() string

	// Send returns the model's next turn. A nil Turn is only returned with
	// a non-nil error.
	Send(ctx context.Context, system string, messages []Message, defs []tools.ToolDef) (*models.Turn, error)

	FormatToolResult(toolCallID, toolName, result string) Message
	FormatAssistantTurn(turn *models.Turn) Message

	// ToolCallID names the index-th tool call of a turn. The same function
	// must be used for the assistant turn and the matching results.
	ToolCallID(index int) string

	// BatchesToolResults reports whether one turn's tool results travel in a
	// single message.
	BatchesToolResults() bool
}

// Role is the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolUse is a tool call echoed back in an assistant message.
type ToolUse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult answers one ToolUse.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Content    string `json:"content"`
}

// Message is a vendor-neutral history entry. Each family converts a list of
// these into its native request shape inside Send.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolUses    []ToolUse    `json:"tool_uses,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// UserMessage returns a plain user text message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// MergeToolResults folds several tool-result messages into one.
func MergeToolResults(msgs []Message) Message {
	out := Message{Role: RoleTool}
	for _, m := range msgs {
		out.ToolResults = append(out.ToolResults, m.ToolResults...)
	}
	return out
}

// assistantMessage echoes a turn back with ids assigned by idFn.
func assistantMessage(turn *models.Turn, idFn func(int) string) Message {
	msg := Message{Role: RoleAssistant}
	if turn == nil {
		return msg
	}
	msg.Content = turn.Content
	for i, tc := range turn.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		msg.ToolUses = append(msg.ToolUses, ToolUse{ID: idFn(i), Name: tc.ToolName, Arguments: args})
	}
	return msg
}

func toolResultMessage(id, name, result string) Message {
	return Message{
		Role:        RoleTool,
		ToolResults: []ToolResult{{ToolCallID: id, ToolName: name, Content: result}},
	}
}

func formatID(prefix string, index int) string {
	return fmt.Sprintf("%s_%04d", prefix, index)
}

// usage builds the Raw["usage"] entry.
func usage(inKey string, in int64, outKey string, out int64) map[string]any {
	return map[string]any{inKey: in, outKey: out}
}
