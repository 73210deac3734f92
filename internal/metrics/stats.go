package metrics

import "math"

// flakyTolerance absorbs float noise from weighted rate sums.
const flakyTolerance = 1e-12

// rateStdDev is the population standard deviation of compliance rates,
// computed in one pass (Welford). Fewer than two rates give 0.
func rateStdDev(rates []float64) float64 {
	var mean, m2 float64
	for i, r := range rates {
		delta := r - mean
		mean += delta / float64(i+1)
		m2 += delta * (r - mean)
	}
	if len(rates) < 2 {
		return 0
	}
	return math.Sqrt(m2 / float64(len(rates)))
}

// isFlaky reports whether repeated compliance rates for the same pair
// disagree. A single rate is never flaky.
func isFlaky(rates []float64) bool {
	for _, r := range rates[min(1, len(rates)):] {
		if math.Abs(r-rates[0]) > flakyTolerance {
			return true
		}
	}
	return false
}
