package models

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplianceRate(t *testing.T) {
	t.Run("weighted", func(t *testing.T) {
		r := &ScenarioResult{Scores: []BehaviorScore{
			{Behavior: WizardBeforeWrite, Passed: true, Weight: 2.0},
			{Behavior: TieredDiscovery, Passed: false, Weight: 1.0},
		}}
		assert.InDelta(t, 2.0/3.0, r.ComplianceRate(), 1e-9)
	})

	t.Run("no scores", func(t *testing.T) {
		r := &ScenarioResult{}
		assert.Equal(t, 0.0, r.ComplianceRate())
	})

	t.Run("zero weights", func(t *testing.T) {
		r := &ScenarioResult{Scores: []BehaviorScore{{Passed: true, Weight: 0}}}
		assert.Equal(t, 0.0, r.ComplianceRate())
	})

	t.Run("error result", func(t *testing.T) {
		r := &ScenarioResult{Error: "boom", Conversation: NewConversation("sys", "user")}
		assert.Equal(t, 0.0, r.ComplianceRate())
		assert.Empty(t, r.ToolSequence())
	})
}

func TestComplianceRate_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("rate stays within [0, 1]", prop.ForAll(
		func(passed []bool, weights []uint8) bool {
			r := &ScenarioResult{}
			for i, p := range passed {
				w := 1.0
				if i < len(weights) {
					w = float64(weights[i]) / 10
				}
				r.Scores = append(r.Scores, BehaviorScore{Passed: p, Weight: w})
			}
			rate := r.ComplianceRate()
			return rate >= 0 && rate <= 1
		},
		gen.SliceOf(gen.Bool()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("all passed with positive weight is 1", prop.ForAll(
		func(weights []uint8) bool {
			r := &ScenarioResult{}
			total := 0.0
			for _, w := range weights {
				r.Scores = append(r.Scores, BehaviorScore{Passed: true, Weight: float64(w)})
				total += float64(w)
			}
			if total == 0 {
				return r.ComplianceRate() == 0
			}
			return r.ComplianceRate() == 1
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestSummaryByProvider(t *testing.T) {
	run := &EvalRun{Results: []*ScenarioResult{
		{Provider: "anthropic", Scores: []BehaviorScore{{Passed: true, Weight: 2}, {Passed: false, Weight: 2}}},
		{Provider: "anthropic", Scores: []BehaviorScore{{Passed: true, Weight: 1}}},
		{Provider: "openai", Error: "network down"},
	}}

	summary := run.SummaryByProvider()
	require.Len(t, summary, 2)
	assert.InDelta(t, 0.75, summary["anthropic"], 1e-9)
	assert.Equal(t, 0.0, summary["openai"])
	assert.Equal(t, []ProviderName{"anthropic", "openai"}, run.Providers())
	assert.Equal(t, 1, run.ErrorCount())
}

func TestSummaryByBehavior(t *testing.T) {
	run := &EvalRun{Results: []*ScenarioResult{
		{Provider: "google", Scores: []BehaviorScore{
			{Behavior: TieredDiscovery, Passed: true, Weight: 1},
			{Behavior: WizardBeforeWrite, Passed: false, Weight: 2},
		}},
		{Provider: "google", Scores: []BehaviorScore{
			{Behavior: TieredDiscovery, Passed: false, Weight: 1.5},
		}},
		// errored results contribute nothing to behavior denominators
		{Provider: "google", Error: "boom"},
	}}

	summary := run.SummaryByBehavior()
	assert.InDelta(t, 0.5, summary[TieredDiscovery]["google"], 1e-9)
	assert.Equal(t, 0.0, summary[WizardBeforeWrite]["google"])
	_, ok := summary[ValidatesAfterWrite]
	assert.False(t, ok)
}

func TestSummary_OrderIndependent(t *testing.T) {
	a := &ScenarioResult{Provider: "openai", Scores: []BehaviorScore{{Behavior: TieredDiscovery, Passed: true, Weight: 1}}}
	b := &ScenarioResult{Provider: "openai", Scores: []BehaviorScore{{Behavior: TieredDiscovery, Passed: false, Weight: 1}}}

	forward := &EvalRun{Results: []*ScenarioResult{a, b}}
	backward := &EvalRun{Results: []*ScenarioResult{b, a}}

	assert.Equal(t, forward.SummaryByProvider(), backward.SummaryByProvider())
	assert.Equal(t, forward.SummaryByBehavior(), backward.SummaryByBehavior())
}

func TestTotalTokens(t *testing.T) {
	run := &EvalRun{Results: []*ScenarioResult{
		{Conversation: &Conversation{TotalInputTokens: 1000, TotalOutputTokens: 20}},
		{Conversation: &Conversation{TotalInputTokens: 234, TotalOutputTokens: 36}},
		{},
	}}
	in, out := run.TotalTokens()
	assert.Equal(t, 1234, in)
	assert.Equal(t, 56, out)
}
