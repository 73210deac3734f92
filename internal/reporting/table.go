// Package reporting renders an EvalRun as a terminal table, JSON, JUnit XML
// or a markdown summary, and writes reports to disk.
package reporting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/emergent-company/epf-eval/internal/models"
)

const (
	barWidth         = 20
	evidenceLimit    = 120
	behaviorColWidth = 40
	providerColWidth = 14
)

var numberPrinter = message.NewPrinter(language.English)

// FormatTable renders the human-readable report.
func FormatTable(run *models.EvalRun) string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("%s", strings.Repeat("=", 90))
	add("EPF Model Compliance Eval — %s", run.RunID)
	add("Timestamp: %s", run.Timestamp)
	add("%s", strings.Repeat("=", 90))
	add("")

	byProvider := run.SummaryByProvider()
	add("OVERALL COMPLIANCE BY PROVIDER")
	add("%s", strings.Repeat("-", 50))
	for _, p := range sortedProviders(byProvider) {
		rate := byProvider[p]
		add("  %s %s %s", PadRight(string(p), 12), Bar(rate, barWidth), Percent(rate))
	}
	add("")

	byBehavior := run.SummaryByBehavior()
	if len(byBehavior) > 0 {
		providers := run.Providers()
		add("COMPLIANCE BY BEHAVIOR")
		add("%s", strings.Repeat("-", 70))

		var header strings.Builder
		header.WriteString("  " + PadRight("Behavior", behaviorColWidth))
		for _, p := range providers {
			header.WriteString(PadRight(string(p), providerColWidth))
		}
		add("%s", header.String())
		add("  %s", strings.Repeat("-", behaviorColWidth+providerColWidth*len(providers)))

		behaviors := make([]models.ComplianceBehavior, 0, len(byBehavior))
		for b := range byBehavior {
			behaviors = append(behaviors, b)
		}
		sort.Slice(behaviors, func(i, j int) bool { return behaviors[i] < behaviors[j] })

		for _, b := range behaviors {
			var row strings.Builder
			row.WriteString("  " + PadRight(string(b), behaviorColWidth))
			for _, p := range providers {
				row.WriteString(Percent(byBehavior[b][p]))
				row.WriteString(strings.Repeat(" ", 11))
			}
			add("%s", row.String())
		}
		add("")
	}

	add("DETAILED RESULTS")
	add("%s", strings.Repeat("-", 90))
	for _, r := range run.Results {
		add("  [%s] %s → %s", PadRight(string(r.Provider), 10), PadRight(r.ScenarioName, 40), Status(r))
		if r.Error != "" {
			add("    Error: %s", r.Error)
		}
		for _, s := range r.Scores {
			icon := "✓"
			if !s.Passed {
				icon = "✗"
			}
			add("    %s %s", icon, s.Behavior)
			if !s.Passed {
				add("      Evidence: %s", Truncate(s.Evidence, evidenceLimit))
			}
		}
	}
	add("")

	in, out := run.TotalTokens()
	add("Total tokens: %s input + %s output = %s", Thousands(in), Thousands(out), Thousands(in+out))
	add("")

	return strings.Join(lines, "\n")
}

// Status is "ERROR" for a failed run, otherwise the compliance percentage.
func Status(r *models.ScenarioResult) string {
	if r.Error != "" {
		return "ERROR"
	}
	return Percent(r.ComplianceRate())
}

// Percent formats a rate in [0, 1] as a whole percentage.
func Percent(rate float64) string {
	return fmt.Sprintf("%.0f%%", rate*100)
}

// Thousands formats n with comma separators.
func Thousands(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// Bar renders rate as a bracketed bar of width cells. Partial cells round
// down.
func Bar(rate float64, width int) string {
	filled := int(rate * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// PadRight pads s with spaces so its terminal display width reaches width.
func PadRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// Truncate keeps the first n runes of s.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sortedProviders(m map[models.ProviderName]float64) []models.ProviderName {
	out := make([]models.ProviderName, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
