package analytics

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of values with linear interpolation
// between closest ranks. NaN values are ignored; an empty input or a p
// outside [0, 1] yields NaN.
func Quantile(values []float64, p float64) float64 {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN()
	}
	sorted := sortedFinite(values)
	return quantileSorted(sorted, p)
}

// Median is Quantile(values, 0.5)
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Quartiles returns the 25th, 50th and 75th percentiles in one sort
func Quartiles(values []float64) (q25, median, q75 float64) {
	sorted := sortedFinite(values)
	return quantileSorted(sorted, 0.25), quantileSorted(sorted, 0.5), quantileSorted(sorted, 0.75)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// sortedFinite copies the non-NaN values and sorts them ascending
func sortedFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
