package simulation

import (
	"math"
	"slices"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// summary holds the order statistics of a sample.
type summary struct {
	mean, median, stdDev float64
	min, max             float64
	probPositive         float64
	var95                float64
	intervals            []domain.ConfidenceInterval
}

// summarize sorts samples in place and computes the distribution statistics.
// Intervals use order statistics: for confidence c the bounds are the samples
// at ⌊((1−c)/2)·n⌋ and ⌊(1−(1−c)/2)·n⌋, the upper one clamped to n−1.
func summarize(samples []float64, levels []float64) summary {
	n := len(samples)
	if n == 0 {
		return summary{}
	}
	slices.Sort(samples)

	lo, hi := samples[0], samples[n-1]

	// Media desplazada por el mínimo: exacta cuando todas las muestras son iguales.
	var shifted float64
	positive := 0
	for _, x := range samples {
		shifted += x - lo
		if x > 0 {
			positive++
		}
	}
	mean := lo + shifted/float64(n)
	mean = math.Min(math.Max(mean, lo), hi)

	var ss float64
	for _, x := range samples {
		d := x - mean
		ss += d * d
	}

	median := samples[n/2]
	if n%2 == 0 {
		median = (samples[n/2-1] + samples[n/2]) / 2
	}

	intervals := make([]domain.ConfidenceInterval, 0, len(levels))
	for _, c := range levels {
		li := orderIndex((1-c)/2, n)
		ui := orderIndex(1-(1-c)/2, n)
		intervals = append(intervals, domain.ConfidenceInterval{Level: c, Lower: samples[li], Upper: samples[ui]})
	}

	return summary{
		mean:         mean,
		median:       median,
		stdDev:       math.Sqrt(ss / float64(n)),
		min:          lo,
		max:          hi,
		probPositive: float64(positive) / float64(n),
		var95:        samples[orderIndex(0.05, n)],
		intervals:    intervals,
	}
}

// orderIndex is ⌊q·n⌋ clamped to [0, n−1].
func orderIndex(q float64, n int) int {
	i := int(math.Floor(q * float64(n)))
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// pathVolatility is the annualized population stdev of daily log returns.
func pathVolatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss/float64(len(returns))) * math.Sqrt(365)
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
