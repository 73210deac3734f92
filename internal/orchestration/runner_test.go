package orchestration

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/epf-eval/internal/execution"
	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/scenarios"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// compliantProvider opens every conversation with a health check and then
// answers in text. It is safe for concurrent use.
type compliantProvider struct {
	*providers.Scripted
	panics bool
}

func newCompliant(name models.ProviderName) *compliantProvider {
	return &compliantProvider{Scripted: providers.NewScripted(name, providers.FamilyAnthropic)}
}

func (c *compliantProvider) Send(ctx context.Context, _ string, messages []providers.Message, _ []tools.ToolDef) (*models.Turn, error) {
	if c.panics {
		panic("provider exploded")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(messages) == 1 {
		return providers.ToolCallTurn("epf_health_check"), nil
	}
	return &models.Turn{Content: "done"}, nil
}

func mustScenario(t *testing.T, id string) *scenarios.Scenario {
	t.Helper()
	s, err := scenarios.Get(id)
	require.NoError(t, err)
	return s
}

func TestRunScenario(t *testing.T) {
	s := mustScenario(t, "tiered-discovery")
	p := newCompliant("anthropic")

	res := RunScenario(context.Background(), s, p, tools.NewRegistry(), execution.LoopOptions{})
	assert.Empty(t, res.Error)
	assert.Equal(t, "tiered-discovery", res.ScenarioID)
	assert.Equal(t, s.Name, res.ScenarioName)
	assert.Equal(t, models.ProviderName("anthropic"), res.Provider)
	assert.Equal(t, "scripted", res.Model)
	assert.Equal(t, []string{"epf_health_check"}, res.ToolSequence())
	assert.NotEmpty(t, res.Scores)
	assert.Equal(t, 1.0, res.ComplianceRate())
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	assert.Equal(t, scenarios.SystemPrompt, res.Conversation.SystemPrompt)
}

func TestRunScenario_LoopErrorHasNoScores(t *testing.T) {
	s := mustScenario(t, "health-check-compliance")
	p := newCompliant("openai")
	p.panics = true

	res := RunScenario(context.Background(), s, p, tools.NewRegistry(), execution.LoopOptions{})
	assert.Contains(t, res.Error, "provider exploded")
	assert.Empty(t, res.Scores)
	assert.NotNil(t, res.Scores)
	assert.Equal(t, 0.0, res.ComplianceRate())
	require.NotNil(t, res.Conversation)
	assert.Empty(t, res.Conversation.Turns)
	assert.Equal(t, []string{s.UserMessage}, res.Conversation.UserMessages)
}

func TestRunScenario_UsesScenarioFixtures(t *testing.T) {
	s := mustScenario(t, "structural-error-wizard")
	p := providers.NewScripted("google", providers.FamilyGoogle,
		providers.ToolCallTurn("epf_validate_file"),
		&models.Turn{Content: "this is structural"},
	)
	reg := tools.NewRegistry()

	res := RunScenario(context.Background(), s, p, reg, execution.LoopOptions{})
	require.Empty(t, res.Error)
	got := res.Conversation.Turns[0].ToolCalls[0].Result
	assert.Equal(t, reg.Get("epf_validate_file", "structural_errors"), got)
	assert.NotEqual(t, reg.Get("epf_validate_file", ""), got)
}

func TestRunner_ProviderMajorOrder(t *testing.T) {
	scs := []*scenarios.Scenario{mustScenario(t, "tiered-discovery"), mustScenario(t, "health-check-compliance")}
	provs := []providers.Provider{newCompliant("openai"), newCompliant("anthropic")}

	r := NewRunner(tools.NewRegistry(), WithWorkers(8), WithRepeats(2))
	run, err := r.Run(context.Background(), "run-1", scs, provs)
	require.NoError(t, err)
	require.Len(t, run.Results, 8)

	type key struct {
		provider models.ProviderName
		scenario string
	}
	var got []key
	for _, res := range run.Results {
		got = append(got, key{res.Provider, res.ScenarioID})
	}
	assert.Equal(t, []key{
		{"openai", "tiered-discovery"}, {"openai", "tiered-discovery"},
		{"openai", "health-check-compliance"}, {"openai", "health-check-compliance"},
		{"anthropic", "tiered-discovery"}, {"anthropic", "tiered-discovery"},
		{"anthropic", "health-check-compliance"}, {"anthropic", "health-check-compliance"},
	}, got)
	assert.Equal(t, "run-1", run.RunID)
	_, err = time.Parse(time.RFC3339, run.Timestamp)
	assert.NoError(t, err)
}

func TestRunner_FailedPairDoesNotAbort(t *testing.T) {
	bad := newCompliant("google")
	bad.panics = true
	provs := []providers.Provider{bad, newCompliant("openai")}

	run, err := NewRunner(tools.NewRegistry(), WithWorkers(2)).Run(context.Background(), "r", scenarios.All(), provs)
	require.NoError(t, err)
	require.Len(t, run.Results, 2*len(scenarios.All()))
	assert.Equal(t, len(scenarios.All()), run.ErrorCount())
	for _, res := range run.Results[len(scenarios.All()):] {
		assert.Empty(t, res.Error)
	}
}

func TestRunner_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	counts := map[EventType]int{}
	var last ProgressEvent
	listener := func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		counts[e.EventType]++
		last = e
		if e.EventType == EventPairCompleted {
			assert.Equal(t, 1.0, e.Rate)
			assert.Empty(t, e.Error)
		}
	}

	r := NewRunner(tools.NewRegistry(), WithWorkers(3), WithProgressListener(listener))
	_, err := r.Run(context.Background(), "r", []*scenarios.Scenario{mustScenario(t, "tiered-discovery")},
		[]providers.Provider{newCompliant("a"), newCompliant("b"), newCompliant("c")})
	require.NoError(t, err)

	assert.Equal(t, 3, counts[EventPairStarted])
	assert.Equal(t, 3, counts[EventPairCompleted])
	assert.Equal(t, 1, counts[EventRunComplete])
	assert.Equal(t, EventRunComplete, last.EventType)
	assert.Equal(t, 3, last.Total)
}

func TestRunner_LoopOptions(t *testing.T) {
	p := providers.NewScripted("openai", providers.FamilyOpenAI,
		providers.ToolCallTurn("epf_health_check"),
		providers.ToolCallTurn("epf_health_check"),
	)
	r := NewRunner(tools.NewRegistry(), WithLoopOptions(execution.LoopOptions{MaxTurns: 2}))
	run, err := r.Run(context.Background(), "r", []*scenarios.Scenario{mustScenario(t, "tiered-discovery")}, []providers.Provider{p})
	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.True(t, run.Results[0].Conversation.HitTurnLimit)
	assert.Len(t, run.Results[0].Conversation.Turns, 2)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := NewRunner(tools.NewRegistry()).Run(ctx, "r", scenarios.All(), []providers.Provider{newCompliant("openai")})
	require.ErrorIs(t, err, context.Canceled)
	for _, res := range run.Results {
		assert.NotNil(t, res)
	}
}

func TestNewRunID(t *testing.T) {
	now := time.Date(2026, 3, 9, 17, 4, 5, 0, time.FixedZone("PST", -8*3600))
	id := NewRunID(now)
	assert.Regexp(t, regexp.MustCompile(`^eval-20260310-010405-[0-9a-f]{6}$`), id)
	assert.NotEqual(t, id, NewRunID(now))
}
