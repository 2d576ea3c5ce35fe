package services

import (
	"slices"
)

// Quantile returns the p-quantile (0 <= p <= 1) of values using linear
// interpolation between closest ranks, matching the convention the
// upstream snapshot was tiered with. The input is not modified.
// Returns 0 for an empty input; callers guard the empty-aggregate case
// before tiering.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return slices.Min(values)
	}
	if p >= 1 {
		return slices.Max(values)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
