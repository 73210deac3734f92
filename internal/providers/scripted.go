package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// ErrScriptExhausted is returned once a Scripted provider has replayed
// every turn.
var ErrScriptExhausted = errors.New("scripted provider: no turns left")

// Scripted replays a fixed list of turns. It formats history like family
// so the loop exercises the same batching and id rules as the real vendor.
type Scripted struct {
	name   models.ProviderName
	model  string
	family Family

	mu    sync.Mutex
	turns []*models.Turn
	// calls records the history length seen by each Send.
	calls []int
}

// NewScripted returns a provider that answers Send with turns in order.
func NewScripted(name models.ProviderName, family Family, turns ...*models.Turn) *Scripted {
	return &Scripted{name: name, model: "scripted", family: family, turns: turns}
}

// ToolCallTurn is a convenience for a turn that calls the named tools with
// empty arguments.
func ToolCallTurn(names ...string) *models.Turn {
	t := &models.Turn{}
	for _, n := range names {
		t.ToolCalls = append(t.ToolCalls, &models.ToolCall{ToolName: n, Arguments: map[string]any{}})
	}
	return t
}

func (s *Scripted) Name() models.ProviderName { return s.name }
func (s *Scripted) Model() string { return s.model }

func (s *Scripted) Send(ctx context.Context, _ string, messages []Message, _ []tools.ToolDef) (*models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, len(messages))
	if len(s.turns) == 0 {
		return nil, ErrScriptExhausted
	}
	next := s.turns[0]
	s.turns = s.turns[1:]

	// Hand out a copy so the loop can fill in results without touching the
	// script.
	out := &models.Turn{Content: next.Content, Raw: next.Raw}
	for _, tc := range next.ToolCalls {
		c := *tc
		out.ToolCalls = append(out.ToolCalls, &c)
	}
	return out, nil
}

// HistoryLengths returns the number of messages passed to each Send.
func (s *Scripted) HistoryLengths() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

func (s *Scripted) FormatToolResult(toolCallID, toolName, result string) Message {
	return toolResultMessage(toolCallID, toolName, result)
}

func (s *Scripted) FormatAssistantTurn(turn *models.Turn) Message {
	return assistantMessage(turn, s.ToolCallID)
}

func (s *Scripted) ToolCallID(index int) string {
	switch s.family {
	case FamilyAnthropic:
		return formatID("toolu", index)
	case FamilyOpenAI:
		return formatID("call", index)
	default:
		return formatID("fc", index)
	}
}

func (s *Scripted) BatchesToolResults() bool {
	return s.family == FamilyAnthropic
}
