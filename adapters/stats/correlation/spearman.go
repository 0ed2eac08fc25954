package correlation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type spearman struct {
	degreesOfFreedom float64
	dist             distuv.StudentsT
}

func newSpearman(sampleCount int) *spearman {
	df := float64(sampleCount - 2)
	return &spearman{
		degreesOfFreedom: df,
		dist:             distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df},
	}
}

// Correlate computes the rank correlation rs (ties averaged) and the
// two-sided p-value from the t-transform used by scipy's spearmanr.
func (s *spearman) Correlate(x, y []float64) (float64, float64, error) {
	if err := checkVariance(x, y); err != nil {
		return 0, 0, err
	}
	rs := clamp(stat.Correlation(averageRanks(x), averageRanks(y), nil))

	t := rs * math.Sqrt(s.degreesOfFreedom/((rs+1)*(1-rs)))
	pValue := 2 * s.dist.Survival(math.Abs(t))
	return rs, pValue, nil
}

// averageRanks assigns 1-based ranks, averaging over tied values.
func averageRanks(data []float64) []float64 {
	n := len(data)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return data[order[a]] < data[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && data[order[j+1]] == data[order[i]] {
			j++
		}
		// ranks i+1..j+1 collapse to their mean
		mean := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = mean
		}
		i = j + 1
	}
	return ranks
}
