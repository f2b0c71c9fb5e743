package eval

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"sort"
)

// DefaultGridPoints is the number of points the cumulative distributions are compared on.
const DefaultGridPoints = 1000

// MinSizeRatio is the smallest ratio of sample sizes KS compares; more unbalanced samples score 1.
const MinSizeRatio = 0.05

// Interp evaluates the piecewise linear function through (xp, fp) at x. xp must be non-decreasing. Points left of
// xp[0] evaluate to left and points right of the last xp to right. Where xp has ties the last of the tied points is
// used.
func Interp(x float64, xp, fp []float64, left, right float64) float64 {
	n := len(xp)
	switch {
	case n == 0:
		return left
	case x < xp[0]:
		return left
	case x > xp[n-1]:
		return right
	}
	j := sort.Search(n, func(i int) bool { return xp[i] > x }) - 1
	if j == n-1 || xp[j] == x {
		return fp[j]
	}
	return fp[j] + (x-xp[j])*(fp[j+1]-fp[j])/(xp[j+1]-xp[j])
}

// WeightedPercentile returns the value below which the fraction q of the total weight of data lies. Each point
// contributes half of its weight on either side of itself.
func WeightedPercentile(data, weights []float64, q float64) (float64, error) {
	if len(data) == 0 {
		return 0, errors.New("weighted percentile of no data")
	}
	if len(data) != len(weights) {
		return 0, errors.Errorf("%d values but %d weights", len(data), len(weights))
	}
	x := append([]float64(nil), data...)
	w := append([]float64(nil), weights...)
	stat.SortWeighted(x, w)
	if len(x) == 1 {
		return x[0], nil
	}

	percentiles := floats.CumSum(make([]float64, len(w)), w)
	for i := range percentiles {
		percentiles[i] -= 0.5 * w[i]
	}
	first := percentiles[0]
	floats.AddConst(-first, percentiles)
	last := percentiles[len(percentiles)-1]
	if last <= 0 {
		return 0, errors.New("weighted percentile of data without weight")
	}
	floats.Scale(1/last, percentiles)
	return Interp(q, percentiles, x, x[0], x[len(x)-1]), nil
}

// KS is the weighted Kolmogorov-Smirnov statistic of samples p and q: the largest distance between their weighted
// cumulative distributions evaluated on numPts equidistant points spanning both samples. Empty samples, samples
// without weight, samples whose weights do not match their values and samples whose sizes differ by more than
// MinSizeRatio score 1.
func KS(p, pWeights, q, qWeights []float64, numPts int) float64 {
	if len(p) == 0 || len(q) == 0 || len(p) != len(pWeights) || len(q) != len(qWeights) {
		return 1
	}
	small, large := float64(len(p)), float64(len(q))
	if small > large {
		small, large = large, small
	}
	if small/large < MinSizeRatio {
		return 1
	}
	if numPts < 2 {
		numPts = DefaultGridPoints
	}

	ps, pc, ok := cumulative(p, pWeights)
	if !ok {
		return 1
	}
	qs, qc, ok := cumulative(q, qWeights)
	if !ok {
		return 1
	}

	lo, hi := ps[0], ps[len(ps)-1]
	if qs[0] < lo {
		lo = qs[0]
	}
	if qs[len(qs)-1] > hi {
		hi = qs[len(qs)-1]
	}
	grid := make([]float64, numPts)
	if lo == hi {
		for i := range grid {
			grid[i] = lo
		}
	} else {
		floats.Span(grid, lo, hi)
	}

	var ks float64
	for _, x := range grid {
		d := Interp(x, ps, pc, 0, 1) - Interp(x, qs, qc, 0, 1)
		if d < 0 {
			d = -d
		}
		if d > ks {
			ks = d
		}
	}
	return ks
}

// cumulative sorts values and returns them together with their normalised cumulative weights.
func cumulative(values, weights []float64) (sorted, cum []float64, ok bool) {
	sorted = append([]float64(nil), values...)
	w := append([]float64(nil), weights...)
	stat.SortWeighted(sorted, w)
	cum = floats.CumSum(make([]float64, len(w)), w)
	total := cum[len(cum)-1]
	if total <= 0 {
		return nil, nil, false
	}
	floats.Scale(1/total, cum)
	return sorted, cum, true
}
