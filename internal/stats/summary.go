package stats

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// DefaultPercentiles are reported when the caller does not choose any
var DefaultPercentiles = []float64{0.1, 0.25, 0.75, 0.9}

// Summary is the distribution of one quantity across games
type Summary struct {
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	StdDev      float64            `json:"std_dev"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Median      float64            `json:"median"`
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
}

// PercentileLabel names a quantile in [0,1] as "p90", "p2.5"
func PercentileLabel(p float64) string {
	return "p" + strconv.FormatFloat(p*100, 'f', -1, 64)
}

// Summarize reduces samples to mean, population std-dev, min, max and the
// requested percentiles. The samples are sorted first, so the result does not
// depend on the order they were collected in.
func Summarize(values []float64, percentiles []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	s := Summary{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
	if len(sorted) == 1 {
		// exact round trip for a single game
		s.Mean = sorted[0]
		s.StdDev = 0
	}
	if len(percentiles) > 0 {
		s.Percentiles = make(map[string]float64, len(percentiles))
		for _, p := range percentiles {
			if p < 0 || p > 1 {
				continue
			}
			s.Percentiles[PercentileLabel(p)] = stat.Quantile(p, stat.Empirical, sorted, nil)
		}
	}
	return s
}
