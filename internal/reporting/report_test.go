package reporting

import (
	"github.com/emergent-company/epf-eval/internal/models"
)

func conv(in, out int, tools ...string) *models.Conversation {
	c := models.NewConversation("sys", "user")
	calls := make([]*models.ToolCall, 0, len(tools))
	for _, name := range tools {
		calls = append(calls, &models.ToolCall{ToolName: name})
	}
	c.Turns = append(c.Turns, &models.Turn{ToolCalls: calls}, &models.Turn{Content: "done"})
	c.TotalInputTokens = in
	c.TotalOutputTokens = out
	return c
}

func sampleRun() *models.EvalRun {
	return &models.EvalRun{
		RunID:     "eval-20260310-010405-abc123",
		Timestamp: "2026-03-10T01:04:05Z",
		Results: []*models.ScenarioResult{
			{
				ScenarioID:   "health-check-compliance",
				ScenarioName: "Health Check → Follow Suggestions",
				Provider:     "anthropic",
				Model:        "claude-sonnet-4-20250514",
				Conversation: conv(1000, 200, "epf_health_check", "epf_get_wizard_for_task"),
				Scores: []models.BehaviorScore{
					{Behavior: models.TieredDiscovery, Passed: true, Evidence: "First tool: epf_health_check", Weight: 1},
					{Behavior: models.FollowsRequiredToolCalls, Passed: true, Evidence: "called", Weight: 2},
				},
				DurationMs: 1500,
			},
			{
				ScenarioID:   "tiered-discovery",
				ScenarioName: "Tiered Discovery — Start with Tier 1",
				Provider:     "openai",
				Model:        "gpt-4o",
				Conversation: conv(234, 34, "epf_get_schema"),
				Scores: []models.BehaviorScore{
					{Behavior: models.TieredDiscovery, Passed: false, Evidence: "First tool: epf_get_schema. Started with Tier 1: false.", Weight: 1.5},
				},
				DurationMs: 500,
			},
			{
				ScenarioID:   "tiered-discovery",
				ScenarioName: "Tiered Discovery — Start with Tier 1",
				Provider:     "google",
				Model:        "gemini-2.5-pro",
				Conversation: models.NewConversation("sys", "user"),
				Scores:       []models.BehaviorScore{},
				Error:        "agent loop for google panicked: boom",
			},
		},
	}
}
