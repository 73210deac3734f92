package models

import "sort"

// ComplianceBehavior is a named, independently scored property of model
// conduct.
type ComplianceBehavior string

const (
	// FollowsRequiredToolCalls: does the model act on required_next_tool_calls?
	FollowsRequiredToolCalls ComplianceBehavior = "follows_required_tool_calls"
	// WizardBeforeWrite: is a wizard consulted before an artifact is written?
	WizardBeforeWrite ComplianceBehavior = "wizard_before_write"
	// NoInventedStructure: is structure taken from tools instead of memory?
	NoInventedStructure ComplianceBehavior = "no_invented_structure"
	// TieredDiscovery: does the model start with Tier 1 tools?
	TieredDiscovery ComplianceBehavior = "tiered_discovery"
	// ValidatesAfterWrite: is the result validated?
	ValidatesAfterWrite ComplianceBehavior = "validates_after_write"
	// StructuralErrorClassification: are structural and surface errors told apart?
	StructuralErrorClassification ComplianceBehavior = "structural_error_classification"
)

// AllBehaviors lists every behavior in declaration order.
var AllBehaviors = []ComplianceBehavior{
	FollowsRequiredToolCalls,
	WizardBeforeWrite,
	NoInventedStructure,
	TieredDiscovery,
	ValidatesAfterWrite,
	StructuralErrorClassification,
}

// ProviderName identifies a configured provider, e.g. "vertex-claude".
type ProviderName string

// BehaviorScore is one pass/fail judgment with its relative weight.
type BehaviorScore struct {
	Behavior ComplianceBehavior `json:"behavior"`
	Passed   bool               `json:"passed"`
	Evidence string             `json:"evidence"`
	Weight   float64            `json:"weight"`
}

// ScenarioResult is the outcome of one scenario against one provider.
type ScenarioResult struct {
	ScenarioID   string          `json:"scenario_id"`
	ScenarioName string          `json:"scenario_name"`
	Provider     ProviderName    `json:"provider"`
	Model        string          `json:"model"`
	Conversation *Conversation   `json:"conversation"`
	Scores       []BehaviorScore `json:"scores"`
	Error        string          `json:"error,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
}

// ComplianceRate is the weighted fraction of passed scores. It is 0 when
// nothing was scored.
func (r *ScenarioResult) ComplianceRate() float64 {
	var total, passed float64
	for _, s := range r.Scores {
		total += s.Weight
		if s.Passed {
			passed += s.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return passed / total
}

// ToolSequence is a shortcut for the conversation's tool sequence.
func (r *ScenarioResult) ToolSequence() []string {
	if r.Conversation == nil {
		return []string{}
	}
	return r.Conversation.ToolSequence()
}

// EvalRun holds every result of one invocation. Aggregates are computed on
// demand and do not depend on result order.
type EvalRun struct {
	RunID     string            `json:"run_id"`
	Timestamp string            `json:"timestamp"`
	Results   []*ScenarioResult `json:"results"`
}

// SummaryByProvider is the unweighted mean of each result's compliance rate.
func (run *EvalRun) SummaryByProvider() map[ProviderName]float64 {
	sums := map[ProviderName]float64{}
	counts := map[ProviderName]int{}
	for _, r := range run.Results {
		sums[r.Provider] += r.ComplianceRate()
		counts[r.Provider]++
	}
	out := make(map[ProviderName]float64, len(sums))
	for p, sum := range sums {
		out[p] = sum / float64(counts[p])
	}
	return out
}

// SummaryByBehavior is the raw pass frequency per behavior and provider,
// counting every emitted score once regardless of weight.
func (run *EvalRun) SummaryByBehavior() map[ComplianceBehavior]map[ProviderName]float64 {
	type tally struct{ passed, total int }
	data := map[ComplianceBehavior]map[ProviderName]*tally{}
	for _, r := range run.Results {
		for _, s := range r.Scores {
			byProvider, ok := data[s.Behavior]
			if !ok {
				byProvider = map[ProviderName]*tally{}
				data[s.Behavior] = byProvider
			}
			t, ok := byProvider[r.Provider]
			if !ok {
				t = &tally{}
				byProvider[r.Provider] = t
			}
			t.total++
			if s.Passed {
				t.passed++
			}
		}
	}

	out := make(map[ComplianceBehavior]map[ProviderName]float64, len(data))
	for b, byProvider := range data {
		out[b] = make(map[ProviderName]float64, len(byProvider))
		for p, t := range byProvider {
			if t.total > 0 {
				out[b][p] = float64(t.passed) / float64(t.total)
			}
		}
	}
	return out
}

// Providers returns the distinct providers in the run, sorted.
func (run *EvalRun) Providers() []ProviderName {
	seen := map[ProviderName]bool{}
	var out []ProviderName
	for _, r := range run.Results {
		if !seen[r.Provider] {
			seen[r.Provider] = true
			out = append(out, r.Provider)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RatesByProvider groups the per-result compliance rates by provider.
func (run *EvalRun) RatesByProvider() map[ProviderName][]float64 {
	out := map[ProviderName][]float64{}
	for _, r := range run.Results {
		out[r.Provider] = append(out[r.Provider], r.ComplianceRate())
	}
	return out
}

// TotalTokens sums token usage over every result.
func (run *EvalRun) TotalTokens() (input, output int) {
	for _, r := range run.Results {
		if r.Conversation == nil {
			continue
		}
		input += r.Conversation.TotalInputTokens
		output += r.Conversation.TotalOutputTokens
	}
	return input, output
}

// ErrorCount is the number of results that failed to run.
func (run *EvalRun) ErrorCount() int {
	n := 0
	for _, r := range run.Results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
