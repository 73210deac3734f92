package utils

import (
	"context"
	"log/slog"

	"github.com/emergent-company/epf-eval/internal/models"
)

// TurnToSlog dumps one assistant turn at debug level.
func TurnToSlog(provider models.ProviderName, n int, turn *models.Turn) {
	if turn == nil || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"provider", provider,
		"turn", n,
		"toolCalls", len(turn.ToolCalls),
	}

	attrs = addIf(attrs, "content", nonEmpty(turn.Content))
	attrs = addIf(attrs, "stopReason", rawString(turn.Raw, "stop_reason"))
	attrs = addIf(attrs, "finishReason", rawString(turn.Raw, "finish_reason"))

	slog.Debug("Turn received", attrs...)

	for i, tc := range turn.ToolCalls {
		slog.Debug("Tool call",
			"provider", provider,
			"turn", n,
			"index", i,
			"toolName", tc.ToolName,
			"arguments", tc.Arguments,
		)
	}
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawString(raw map[string]any, key string) *string {
	s, ok := raw[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
