package reporting

import (
	"fmt"
	"strings"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/statistics"
)

// FormatMarkdown renders the run as a markdown summary suitable for a pull
// request comment.
func FormatMarkdown(run *models.EvalRun) string {
	var b strings.Builder

	b.WriteString("## EPF Model Compliance Eval\n\n")

	status := "✅ All results scored"
	if n := run.ErrorCount(); n > 0 {
		status = fmt.Sprintf("❌ %d result(s) errored", n)
	}
	in, out := run.TotalTokens()
	fmt.Fprintf(&b, "**Run:** `%s` | **Status:** %s | **Tokens:** %s in / %s out\n\n",
		run.RunID, status, Thousands(in), Thousands(out))

	byProvider := run.SummaryByProvider()
	intervals := statistics.ProviderIntervals(run, statistics.DefaultConfidenceLevel, intervalSeed)

	b.WriteString("### Compliance by Provider\n\n")
	b.WriteString("| Provider | Compliance | Rating | Stability |\n")
	b.WriteString("|----------|------------|--------|-----------|\n")
	for _, p := range sortedProviders(byProvider) {
		rate := byProvider[p]
		stability := "-"
		if ci, ok := intervals[p]; ok {
			stability = InterpretInterval(ci)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p, Percent(rate), InterpretRate(rate), stability)
	}
	b.WriteString("\n")

	var compared []models.ProviderName
	for _, p := range sortedProviders(byProvider) {
		if _, ok := intervals[p]; ok {
			compared = append(compared, p)
		}
	}
	if len(compared) > 1 {
		b.WriteString("### Provider Comparison\n\n")
		for i, a := range compared {
			for _, c := range compared[i+1:] {
				fmt.Fprintf(&b, "- %s\n", InterpretOverlap(a, c, intervals[a], intervals[c]))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("### Scenario Results\n\n")
	b.WriteString("| Provider | Scenario | Result | Tools |\n")
	b.WriteString("|----------|----------|--------|-------|\n")
	for _, r := range run.Results {
		icon := "✅"
		if r.Error != "" || r.ComplianceRate() < 1 {
			icon = "❌"
		}
		seq := strings.Join(r.ToolSequence(), " → ")
		if seq == "" {
			seq = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s %s | %s |\n", r.Provider, r.ScenarioName, icon, Status(r), seq)
	}
	b.WriteString("\n")

	var failures []*models.ScenarioResult
	for _, r := range run.Results {
		if r.Error != "" || r.ComplianceRate() < 1 {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		b.WriteString("### Failed Behavior Details\n\n")
		for _, r := range failures {
			fmt.Fprintf(&b, "#### %s (%s)\n\n", r.ScenarioName, r.Provider)
			if r.Error != "" {
				fmt.Fprintf(&b, "- ⚠️ **error**: %s\n", r.Error)
			}
			for _, s := range r.Scores {
				if !s.Passed {
					fmt.Fprintf(&b, "- ❌ **%s** (weight %.1f): %s\n", s.Behavior, s.Weight, s.Evidence)
				}
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "**Timestamp:** %s\n", run.Timestamp)

	return b.String()
}
