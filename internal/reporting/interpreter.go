package reporting

import (
	"fmt"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/statistics"
)

// InterpretRate returns a plain-language label for a compliance rate (0–1).
func InterpretRate(rate float64) string {
	pct := rate * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// InterpretInterval explains how stable repeated results were.
func InterpretInterval(ci statistics.ConfidenceInterval) string {
	if ci.Samples < 2 {
		return "Single run; repeat the eval for a confidence interval."
	}
	width := (ci.Upper - ci.Lower) * 100
	if width < 1e-9 {
		return fmt.Sprintf("Consistent across %d runs.", ci.Samples)
	}
	return fmt.Sprintf("%.0f%% CI %s to %s over %d runs (±%.0f points).",
		ci.ConfidenceLevel*100, Percent(ci.Lower), Percent(ci.Upper), ci.Samples, width/2)
}

// InterpretOverlap says whether the intervals of two providers separate at
// their confidence level.
func InterpretOverlap(a, b models.ProviderName, ca, cb statistics.ConfidenceInterval) string {
	level := ca.ConfidenceLevel * 100
	if statistics.Overlap(ca, cb) {
		return fmt.Sprintf("%s vs %s: intervals overlap at %.0f%%, difference not conclusive.", a, b, level)
	}
	return fmt.Sprintf("%s vs %s: intervals do not overlap at %.0f%%, difference is significant.", a, b, level)
}
