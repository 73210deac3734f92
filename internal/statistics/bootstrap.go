// Package statistics computes bootstrap confidence intervals over repeated
// compliance rates.
package statistics

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/emergent-company/epf-eval/internal/models"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval computation.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
	Samples         int     `json:"samples"`
}

const (
	// DefaultBootstrapIterations is the number of bootstrap resamples.
	DefaultBootstrapIterations = 10000
	// DefaultConfidenceLevel is used for report intervals.
	DefaultConfidenceLevel = 0.95
)

// BootstrapCI computes a percentile bootstrap interval for the mean of rates.
// With fewer than 2 values the interval collapses to the mean.
func BootstrapCI(rates []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(rates, confidenceLevel, -1)
}

// BootstrapCIWithSeed is like BootstrapCI but accepts a seed for reproducibility.
// A negative seed uses a non-deterministic source.
func BootstrapCIWithSeed(rates []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(rates)
	m := mean(rates)
	if n < 2 {
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
			Samples:         n,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	iters := DefaultBootstrapIterations
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := range iters {
		for j := range n {
			sample[j] = rates[rng.IntN(n)]
		}
		bootMeans[i] = mean(sample)
	}
	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return ConfidenceInterval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
		Samples:         n,
	}
}

// ProviderIntervals returns an interval for every provider with at least two
// results. It returns nil when no provider qualifies.
func ProviderIntervals(run *models.EvalRun, confidenceLevel float64, seed int64) map[models.ProviderName]ConfidenceInterval {
	var out map[models.ProviderName]ConfidenceInterval
	for p, rates := range run.RatesByProvider() {
		if len(rates) < 2 {
			continue
		}
		if out == nil {
			out = map[models.ProviderName]ConfidenceInterval{}
		}
		out[p] = BootstrapCIWithSeed(rates, confidenceLevel, seed)
	}
	return out
}

// Overlap reports whether two intervals share any point. Non-overlapping
// intervals mean the providers' compliance differs at that level.
func Overlap(a, b ConfidenceInterval) bool {
	return a.Lower <= b.Upper && b.Lower <= a.Upper
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
