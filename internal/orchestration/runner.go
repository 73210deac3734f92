// Package orchestration runs scenarios against providers and collects the
// scored results into an EvalRun.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/emergent-company/epf-eval/internal/execution"
	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/providers"
	"github.com/emergent-company/epf-eval/internal/scenarios"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// RunScenario drives one scenario against one provider and scores it. A loop
// failure yields a result with Error set, a fresh conversation and no scores.
func RunScenario(ctx context.Context, s *scenarios.Scenario, p providers.Provider, reg *tools.Registry, opts execution.LoopOptions) *models.ScenarioResult {
	start := time.Now()
	result := &models.ScenarioResult{
		ScenarioID:   s.ID,
		ScenarioName: s.Name,
		Provider:     p.Name(),
		Model:        p.Model(),
	}

	if opts.Tools == nil {
		opts.Tools = s.ToolDefs()
	}
	opts.Resolver = s.ResolverFor(reg)

	conv, err := execution.RunAgentLoop(ctx, p, scenarios.SystemPrompt, s.UserMessage, reg, opts)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		slog.Debug("Scenario failed", "scenario", s.ID, "provider", p.Name(), "error", err)
		result.Error = err.Error()
		result.Conversation = models.NewConversation(scenarios.SystemPrompt, s.UserMessage)
		result.Scores = []models.BehaviorScore{}
		return result
	}

	result.Conversation = conv
	result.Scores = s.Run(conv)
	return result
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

const (
	EventPairStarted   EventType = "pair_started"
	EventPairCompleted EventType = "pair_completed"
	EventRunComplete   EventType = "run_complete"
)

// ProgressEvent represents a progress update. Index and Total count pairs;
// Rate and Error are set on EventPairCompleted.
type ProgressEvent struct {
	EventType    EventType
	Index        int
	Total        int
	ScenarioID   string
	ScenarioName string
	Provider     models.ProviderName
	Repeat       int
	Rate         float64
	Error        string
	DurationMs   int64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds how many pairs run at once. Values below 1 run serially.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = max(n, 1)
	}
}

// WithRepeats runs every pair n times. Values below 1 mean once.
func WithRepeats(n int) RunnerOption {
	return func(r *Runner) {
		r.repeats = max(n, 1)
	}
}

// WithLoopOptions sets the agent loop options used for every pair.
func WithLoopOptions(opts execution.LoopOptions) RunnerOption {
	return func(r *Runner) {
		r.loopOpts = opts
	}
}

// WithProgressListener registers a progress listener.
func WithProgressListener(l ProgressListener) RunnerOption {
	return func(r *Runner) {
		r.listeners = append(r.listeners, l)
	}
}

// Runner evaluates a matrix of scenarios × providers × repeats.
type Runner struct {
	registry *tools.Registry
	workers  int
	repeats  int
	loopOpts execution.LoopOptions
	now      func() time.Time

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// NewRunner creates a runner resolving fixtures against reg.
func NewRunner(reg *tools.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: reg,
		workers:  1,
		repeats:  1,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// notifyProgress serializes listener calls so listeners need no locking of
// their own.
func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	for _, listener := range r.listeners {
		listener(event)
	}
}

type pair struct {
	scenario *scenarios.Scenario
	provider providers.Provider
	repeat   int
}

// pairs lists the matrix provider-major: every scenario (and repeat) of the
// first provider, then the next provider.
func (r *Runner) pairs(scs []*scenarios.Scenario, provs []providers.Provider) []pair {
	out := make([]pair, 0, len(scs)*len(provs)*r.repeats)
	for _, p := range provs {
		for _, s := range scs {
			for rep := range r.repeats {
				out = append(out, pair{scenario: s, provider: p, repeat: rep + 1})
			}
		}
	}
	return out
}

// Run evaluates every pair and returns the run with results in matrix order.
// A failed pair is recorded in its result and never aborts the batch. The
// returned error is only set when ctx ends before every pair has run.
func (r *Runner) Run(ctx context.Context, runID string, scs []*scenarios.Scenario, provs []providers.Provider) (*models.EvalRun, error) {
	run := &models.EvalRun{
		RunID:     runID,
		Timestamp: r.now().UTC().Format(time.RFC3339),
	}
	work := r.pairs(scs, provs)
	run.Results = make([]*models.ScenarioResult, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, w := range work {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.notifyProgress(ProgressEvent{
				EventType:    EventPairStarted,
				Index:        i,
				Total:        len(work),
				ScenarioID:   w.scenario.ID,
				ScenarioName: w.scenario.Name,
				Provider:     w.provider.Name(),
				Repeat:       w.repeat,
			})

			res := RunScenario(gctx, w.scenario, w.provider, r.registry, r.loopOpts)
			run.Results[i] = res

			r.notifyProgress(ProgressEvent{
				EventType:    EventPairCompleted,
				Index:        i,
				Total:        len(work),
				ScenarioID:   w.scenario.ID,
				ScenarioName: w.scenario.Name,
				Provider:     w.provider.Name(),
				Repeat:       w.repeat,
				Rate:         res.ComplianceRate(),
				Error:        res.Error,
				DurationMs:   res.DurationMs,
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		run.Results = compact(run.Results)
		return run, fmt.Errorf("run %s interrupted: %w", runID, err)
	}

	r.notifyProgress(ProgressEvent{EventType: EventRunComplete, Total: len(work), Index: len(work)})
	return run, nil
}

// compact drops the slots of pairs that never started.
func compact(results []*models.ScenarioResult) []*models.ScenarioResult {
	out := results[:0]
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// NewRunID returns an id of the form eval-YYYYMMDD-HHMMSS-xxxxxx in UTC.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("eval-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}
