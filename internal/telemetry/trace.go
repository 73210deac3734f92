package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/emergent-company/epf-eval/internal/models"
)

const evidenceLimit = 500

// Export sends one trace per result to cfg and flushes before returning. It
// returns the number of traces the endpoint accepted, which is zero when
// the flush fails.
func Export(ctx context.Context, cfg Config, run *models.EvalRun) (int, error) {
	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return 0, err
	}
	n := TraceRun(ctx, tp, run)
	// Shutdown only hands export errors to the global handler, so flush
	// first to see them.
	if err := tp.ForceFlush(ctx); err != nil {
		_ = tp.Shutdown(ctx)
		return 0, fmt.Errorf("flushing traces: %w", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		return n, fmt.Errorf("shutting down tracer provider: %w", err)
	}
	return n, nil
}

// TraceRun records every result of run on tp.
func TraceRun(ctx context.Context, tp trace.TracerProvider, run *models.EvalRun) int {
	tracer := tp.Tracer(InstrumentationName)
	n := 0
	for _, r := range run.Results {
		traceResult(ctx, tracer, run.RunID, r)
		n++
	}
	return n
}

func traceResult(ctx context.Context, tracer trace.Tracer, runID string, r *models.ScenarioResult) {
	end := time.Now()
	start := end.Add(-time.Duration(r.DurationMs) * time.Millisecond)
	rate := r.ComplianceRate()

	ctx, root := tracer.Start(ctx, "epf-eval/"+r.ScenarioID,
		trace.WithNewRoot(),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("langfuse.session.id", runID),
			attribute.StringSlice("langfuse.trace.tags", []string{"epf-eval", string(r.Provider), r.ScenarioID}),
			attribute.String("epf_eval.run_id", runID),
			attribute.String("epf_eval.provider", string(r.Provider)),
			attribute.String("epf_eval.model", r.Model),
			attribute.String("epf_eval.scenario_id", r.ScenarioID),
			attribute.String("epf_eval.scenario_name", r.ScenarioName),
			attribute.Float64("epf_eval.compliance_rate", rate),
		),
	)
	if r.Error != "" {
		root.SetStatus(codes.Error, r.Error)
		root.SetAttributes(attribute.String("epf_eval.error", r.Error))
	}

	conv := r.Conversation
	if conv == nil {
		conv = models.NewConversation("", "")
	}
	traceLoop(ctx, tracer, r, conv, start, end)

	for _, s := range r.Scores {
		value := 0.0
		if s.Passed {
			value = 1.0
		}
		root.SetAttributes(attribute.Float64("epf_eval.score."+string(s.Behavior), value))
		root.AddEvent("score", trace.WithAttributes(
			attribute.String("score.name", string(s.Behavior)),
			attribute.Float64("score.value", value),
			attribute.Float64("score.weight", s.Weight),
			attribute.String("score.comment", truncate(s.Evidence, evidenceLimit)),
		))
	}
	root.AddEvent("score", trace.WithAttributes(
		attribute.String("score.name", "compliance_rate"),
		attribute.Float64("score.value", rate),
		attribute.String("score.comment", fmt.Sprintf("%.0f%% overall compliance", rate*100)),
	))
	root.End(trace.WithTimestamp(end))
}

func traceLoop(ctx context.Context, tracer trace.Tracer, r *models.ScenarioResult, conv *models.Conversation, start, end time.Time) {
	user := ""
	if len(conv.UserMessages) > 0 {
		user = conv.UserMessages[0]
	}
	_, gen := tracer.Start(ctx, "agent-loop",
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("langfuse.observation.type", "generation"),
			attribute.String("gen_ai.request.model", r.Model),
			attribute.Int("gen_ai.usage.input_tokens", conv.TotalInputTokens),
			attribute.Int("gen_ai.usage.output_tokens", conv.TotalOutputTokens),
			attribute.Int("epf_eval.turns", len(conv.Turns)),
			attribute.StringSlice("epf_eval.tool_sequence", conv.ToolSequence()),
			attribute.String("langfuse.observation.input", marshal(map[string]string{
				"system": conv.SystemPrompt,
				"user":   user,
			})),
			attribute.String("langfuse.observation.output", marshal(loopOutput(conv))),
		),
	)
	gen.End(trace.WithTimestamp(end))

	for turnIdx, turn := range conv.Turns {
		for i, tc := range turn.ToolCalls {
			_, span := tracer.Start(ctx, "tool-call/"+tc.ToolName,
				trace.WithTimestamp(start),
				trace.WithAttributes(
					attribute.Int("epf_eval.turn", turnIdx),
					attribute.Int("epf_eval.tool_call_index", i),
					attribute.String("epf_eval.tool_name", tc.ToolName),
					attribute.String("langfuse.observation.input", marshal(tc.Arguments)),
					attribute.String("langfuse.observation.output", tc.Result),
				),
			)
			span.End(trace.WithTimestamp(end))
		}
	}
}

type toolCallSummary struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

func loopOutput(conv *models.Conversation) map[string]any {
	calls := []toolCallSummary{}
	for _, tc := range conv.ToolCalls() {
		calls = append(calls, toolCallSummary{Tool: tc.ToolName, Args: tc.Arguments})
	}
	return map[string]any{
		"turns":      len(conv.Turns),
		"tool_calls": calls,
		"final_text": conv.FinalText(),
	}
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
