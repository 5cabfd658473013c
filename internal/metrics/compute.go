package metrics

import "sort"

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// sortedCopy returns an ascending copy of values, leaving the input
// untouched.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
