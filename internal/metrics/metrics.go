// Package metrics exports run aggregates as Prometheus gauges, written in the
// node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emergent-company/epf-eval/internal/models"
)

const namespace = "epf_eval"

// Collectors holds the gauges for one run. Each run gets a fresh registry so
// exporting never mixes results across runs.
type Collectors struct {
	Registry *prometheus.Registry

	ProviderRate *prometheus.GaugeVec
	BehaviorRate *prometheus.GaugeVec
	RateStdDev   *prometheus.GaugeVec
	Tokens       *prometheus.GaugeVec
	Results      *prometheus.GaugeVec
	Errors       *prometheus.GaugeVec
	TurnLimits   *prometheus.GaugeVec
	FlakyPairs   *prometheus.GaugeVec
}

// NewCollectors creates and registers the run gauges.
func NewCollectors() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		ProviderRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compliance_rate",
			Help:      "Mean weighted compliance rate per provider.",
		}, []string{"provider"}),
		BehaviorRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "behavior_pass_rate",
			Help:      "Fraction of passed scores per behavior and provider.",
		}, []string{"behavior", "provider"}),
		RateStdDev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compliance_rate_stddev",
			Help:      "Population standard deviation of per-result compliance rates.",
		}, []string{"provider"}),
		Tokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tokens",
			Help:      "Tokens consumed per provider and direction.",
		}, []string{"provider", "direction"}),
		Results: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "results",
			Help:      "Scenario results per provider.",
		}, []string{"provider"}),
		Errors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "errors",
			Help:      "Scenario results that failed to run.",
		}, []string{"provider"}),
		TurnLimits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "turn_limit_hits",
			Help:      "Conversations stopped at the turn ceiling.",
		}, []string{"provider"}),
		FlakyPairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flaky_scenarios",
			Help:      "Scenarios whose repeated compliance rates disagree.",
		}, []string{"provider"}),
	}
	c.Registry.MustRegister(c.ProviderRate, c.BehaviorRate, c.RateStdDev, c.Tokens, c.Results, c.Errors, c.TurnLimits, c.FlakyPairs)
	return c
}

// Observe sets every gauge from run.
func (c *Collectors) Observe(run *models.EvalRun) {
	for p, rate := range run.SummaryByProvider() {
		c.ProviderRate.WithLabelValues(string(p)).Set(rate)
	}
	for p, rates := range run.RatesByProvider() {
		c.RateStdDev.WithLabelValues(string(p)).Set(rateStdDev(rates))
	}
	for b, byProvider := range run.SummaryByBehavior() {
		for p, rate := range byProvider {
			c.BehaviorRate.WithLabelValues(string(b), string(p)).Set(rate)
		}
	}

	type pairKey struct {
		provider models.ProviderName
		scenario string
	}
	repeats := map[pairKey][]float64{}
	for _, r := range run.Results {
		k := pairKey{r.Provider, r.ScenarioID}
		repeats[k] = append(repeats[k], r.ComplianceRate())
	}
	for k, rates := range repeats {
		c.FlakyPairs.WithLabelValues(string(k.provider)).Add(0)
		if isFlaky(rates) {
			c.FlakyPairs.WithLabelValues(string(k.provider)).Inc()
		}
	}

	for _, r := range run.Results {
		p := string(r.Provider)
		c.Results.WithLabelValues(p).Inc()
		c.Errors.WithLabelValues(p).Add(0)
		c.TurnLimits.WithLabelValues(p).Add(0)
		if r.Error != "" {
			c.Errors.WithLabelValues(p).Inc()
		}
		if r.Conversation == nil {
			continue
		}
		if r.Conversation.HitTurnLimit {
			c.TurnLimits.WithLabelValues(p).Inc()
		}
		c.Tokens.WithLabelValues(p, "input").Add(float64(r.Conversation.TotalInputTokens))
		c.Tokens.WithLabelValues(p, "output").Add(float64(r.Conversation.TotalOutputTokens))
	}
}

// WriteTextfile exports run to path for the node_exporter textfile
// collector. The file is replaced atomically.
func WriteTextfile(path string, run *models.EvalRun) error {
	c := NewCollectors()
	c.Observe(run)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, c.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
