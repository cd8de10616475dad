package analytics

import (
	"math"
	"sort"
)

// percentile returns the p-th quantile of sorted values using linear
// interpolation between closest ranks (index p*(n-1)).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// QuartileBoundaries are the 25th, 50th and 75th percentiles of a set.
type QuartileBoundaries struct {
	Q25 float64 `json:"q25"`
	Q50 float64 `json:"q50"`
	Q75 float64 `json:"q75"`
}

// Quartiles computes the boundaries of values. values is not modified.
func Quartiles(values []float64) (QuartileBoundaries, error) {
	if len(values) == 0 {
		return QuartileBoundaries{}, &EmptySelectionError{What: "quartiles", Reason: "no values"}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return QuartileBoundaries{
		Q25: percentile(sorted, 0.25),
		Q50: percentile(sorted, 0.50),
		Q75: percentile(sorted, 0.75),
	}, nil
}

// Label assigns 1-4; a value on a boundary gets the lower label.
func (b QuartileBoundaries) Label(v float64) int {
	switch {
	case v <= b.Q25:
		return 1
	case v <= b.Q50:
		return 2
	case v <= b.Q75:
		return 3
	default:
		return 4
	}
}
