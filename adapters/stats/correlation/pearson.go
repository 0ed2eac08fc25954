package correlation

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type pearson struct {
	degreesOfFreedom float64
	dist             distuv.StudentsT
}

func newPearson(sampleCount int) *pearson {
	df := float64(sampleCount - 2)
	return &pearson{
		degreesOfFreedom: df,
		dist:             distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df},
	}
}

// Correlate returns the product-moment coefficient r and its two-sided
// p-value under a Student-t with n-2 degrees of freedom. The symmetric
// minimum of both tails guards against numerical asymmetry at extreme t,
// matching R's cor.test.
func (p *pearson) Correlate(x, y []float64) (float64, float64, error) {
	if err := checkVariance(x, y); err != nil {
		return 0, 0, err
	}
	r := clamp(stat.Correlation(x, y, nil))

	t := math.Sqrt(p.degreesOfFreedom) * r / math.Sqrt(1-r*r)
	pValue := 2 * math.Min(p.dist.CDF(t), p.dist.Survival(t))
	return r, pValue, nil
}
