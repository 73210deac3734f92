// Package execution drives a multi-turn tool-calling conversation between a
// provider and the fixture registry.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/tools"
	"github.com/emergent-company/epf-eval/internal/utils"
)

// DefaultMaxTurns is used when LoopOptions.MaxTurns is not positive.
const DefaultMaxTurns = 10

// LoopOptions tunes one run of the agent loop. The zero value offers every
// catalog tool, resolves against the registry's defaults and allows
// DefaultMaxTurns turns with no per-call deadline.
type LoopOptions struct {
	Tools       []tools.ToolDef
	Resolver    tools.ResolveFunc
	MaxTurns    int
	CallTimeout time.Duration
}

func (o LoopOptions) withDefaults(reg *tools.Registry) LoopOptions {
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.Tools == nil {
		o.Tools = tools.All()
	}
	if o.Resolver == nil {
		o.Resolver = reg.Resolve
	}
	return o
}

// RunAgentLoop sends the user message and keeps answering tool calls until
// the model replies with text only or the turn ceiling is reached.
//
// A failed Send is recorded as an "[ERROR: ...]" turn and ends the loop
// normally. Context cancellation and resolver panics are returned as errors.
func RunAgentLoop(ctx context.Context, p providers.Provider, system, user string, reg *tools.Registry, opts LoopOptions) (conv *models.Conversation, err error) {
	opts = opts.withDefaults(reg)
	conv = models.NewConversation(system, user)
	messages := []providers.Message{providers.UserMessage(user)}

	defer func() {
		if r := recover(); r != nil {
			conv = nil
			err = fmt.Errorf("agent loop for %s panicked: %v", p.Name(), r)
		}
	}()

	for n := 0; n < opts.MaxTurns; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Debug("Sending turn", "provider", p.Name(), "turn", n+1, "of", opts.MaxTurns, "messages", len(messages))

		turn, sendErr := send(ctx, p, system, messages, opts)
		if sendErr != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Debug("Send failed", "provider", p.Name(), "turn", n+1, "error", sendErr)
			conv.Turns = append(conv.Turns, &models.Turn{Content: fmt.Sprintf("[ERROR: %v]", sendErr)})
			return conv, nil
		}

		in, out := tokenUsage(turn.Raw)
		conv.TotalInputTokens += in
		conv.TotalOutputTokens += out
		conv.Turns = append(conv.Turns, turn)
		utils.TurnToSlog(p.Name(), n+1, turn)

		if !turn.HasToolCalls() {
			return conv, nil
		}

		messages = append(messages, p.FormatAssistantTurn(turn))
		results := make([]providers.Message, 0, len(turn.ToolCalls))
		for i, tc := range turn.ToolCalls {
			tc.Result = opts.Resolver(tc.ToolName, tc.Arguments)
			results = append(results, p.FormatToolResult(p.ToolCallID(i), tc.ToolName, tc.Result))
		}

		if p.BatchesToolResults() {
			messages = append(messages, providers.MergeToolResults(results))
		} else {
			messages = append(messages, results...)
		}
	}

	slog.Debug("Turn limit reached", "provider", p.Name(), "maxTurns", opts.MaxTurns)
	conv.HitTurnLimit = true
	return conv, nil
}

// send waits for a rate limit token, if p has one, before starting the
// per-call deadline.
func send(ctx context.Context, p providers.Provider, system string, messages []providers.Message, opts LoopOptions) (*models.Turn, error) {
	target := p
	if t, ok := p.(providers.Throttled); ok {
		if err := t.Wait(ctx); err != nil {
			return nil, err
		}
		target = t.Unwrap()
	}
	if opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.CallTimeout)
		defer cancel()
	}
	turn, err := target.Send(ctx, system, messages, opts.Tools)
	if err == nil && turn == nil {
		err = fmt.Errorf("%s returned no turn", p.Name())
	}
	return turn, err
}

type usageCounts struct {
	InputTokens      int `mapstructure:"input_tokens"`
	OutputTokens     int `mapstructure:"output_tokens"`
	PromptTokens     int `mapstructure:"prompt_tokens"`
	CompletionTokens int `mapstructure:"completion_tokens"`
}

// tokenUsage reads Raw["usage"], accepting either naming convention. Missing
// or undecodable counts are zero.
func tokenUsage(raw map[string]any) (in, out int) {
	src, ok := raw["usage"]
	if !ok || src == nil {
		return 0, 0
	}
	var u usageCounts
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &u,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return 0, 0
	}
	if err := dec.Decode(src); err != nil {
		slog.Debug("Ignoring malformed usage", "usage", src, "error", err)
		return 0, 0
	}

	in, out = u.InputTokens, u.OutputTokens
	if in == 0 {
		in = u.PromptTokens
	}
	if out == 0 {
		out = u.CompletionTokens
	}
	return in, out
}
