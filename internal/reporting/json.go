package reporting

import (
	"encoding/json"
	"fmt"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/statistics"
)

// intervalSeed keeps report intervals reproducible for a given run.
const intervalSeed = 42

// JSONReport is the machine-readable report.
type JSONReport struct {
	RunID     string       `json:"run_id"`
	Timestamp string       `json:"timestamp"`
	Summary   JSONSummary  `json:"summary"`
	Results   []JSONResult `json:"results"`
}

// JSONSummary holds run aggregates.
type JSONSummary struct {
	ByProvider          map[models.ProviderName]float64                               `json:"by_provider"`
	ByBehavior          map[models.ComplianceBehavior]map[models.ProviderName]float64 `json:"by_behavior"`
	ConfidenceIntervals map[models.ProviderName]statistics.ConfidenceInterval         `json:"confidence_intervals,omitempty"`
}

// JSONResult is one scenario result.
type JSONResult struct {
	ScenarioID     string                 `json:"scenario_id"`
	ScenarioName   string                 `json:"scenario_name"`
	Provider       models.ProviderName    `json:"provider"`
	Model          string                 `json:"model"`
	ComplianceRate float64                `json:"compliance_rate"`
	Error          *string                `json:"error"`
	ToolSequence   []string               `json:"tool_sequence"`
	Scores         []models.BehaviorScore `json:"scores"`
	Turns          int                    `json:"turns"`
	Tokens         JSONTokens             `json:"tokens"`
	HitTurnLimit   bool                   `json:"hit_turn_limit"`
	DurationMs     int64                  `json:"duration_ms"`
}

// JSONTokens is per-result token usage.
type JSONTokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// BuildJSONReport assembles the report. Confidence intervals are included
// when any provider has at least two results.
func BuildJSONReport(run *models.EvalRun) *JSONReport {
	report := &JSONReport{
		RunID:     run.RunID,
		Timestamp: run.Timestamp,
		Summary: JSONSummary{
			ByProvider:          run.SummaryByProvider(),
			ByBehavior:          run.SummaryByBehavior(),
			ConfidenceIntervals: statistics.ProviderIntervals(run, statistics.DefaultConfidenceLevel, intervalSeed),
		},
		Results: make([]JSONResult, 0, len(run.Results)),
	}

	for _, r := range run.Results {
		jr := JSONResult{
			ScenarioID:     r.ScenarioID,
			ScenarioName:   r.ScenarioName,
			Provider:       r.Provider,
			Model:          r.Model,
			ComplianceRate: r.ComplianceRate(),
			ToolSequence:   r.ToolSequence(),
			Scores:         r.Scores,
			DurationMs:     r.DurationMs,
		}
		if jr.Scores == nil {
			jr.Scores = []models.BehaviorScore{}
		}
		if r.Error != "" {
			msg := r.Error
			jr.Error = &msg
		}
		if c := r.Conversation; c != nil {
			jr.Turns = len(c.Turns)
			jr.Tokens = JSONTokens{Input: c.TotalInputTokens, Output: c.TotalOutputTokens}
			jr.HitTurnLimit = c.HitTurnLimit
		}
		report.Results = append(report.Results, jr)
	}
	return report
}

// FormatJSON renders the report indented by two spaces.
func FormatJSON(run *models.EvalRun) ([]byte, error) {
	data, err := json.MarshalIndent(BuildJSONReport(run), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON report: %w", err)
	}
	return data, nil
}
