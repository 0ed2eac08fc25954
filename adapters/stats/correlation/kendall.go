package correlation

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sergiocarp10/ggca/domain/core"
)

type kendall struct {
	dist distuv.Normal
}

func newKendall() *kendall {
	return &kendall{dist: distuv.Normal{Mu: 0, Sigma: 1}}
}

// Correlate computes tie-corrected tau-b and a two-sided p-value from the
// asymptotic z approximation. Values that do not compare (NaN) order as
// greater, so the statistic is always defined.
func (k *kendall) Correlate(x, y []float64) (float64, float64, error) {
	n := len(x)
	var concordant, discordant float64
	var tiedX, tiedY float64 // pairs tied in x resp. y

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cx := compare(x[i], x[j])
			cy := compare(y[i], y[j])
			switch {
			case cx == 0 && cy == 0:
				tiedX++
				tiedY++
			case cx == 0:
				tiedX++
			case cy == 0:
				tiedY++
			case cx == cy:
				concordant++
			default:
				discordant++
			}
		}
	}

	n0 := float64(n*(n-1)) / 2
	denom := math.Sqrt((n0 - tiedX) * (n0 - tiedY))
	if denom == 0 {
		return 0, 0, core.ErrZeroVariance
	}
	tau := clamp((concordant - discordant) / denom)

	z := (concordant - discordant) / math.Sqrt(k.variance(x, y, n))
	pValue := 2 * k.dist.CDF(-math.Abs(z))
	return tau, pValue, nil
}

// variance is the asymptotic variance of C-D under the null, with tie
// correction terms over the tied-value groups of both vectors.
func (k *kendall) variance(x, y []float64, n int) float64 {
	vtX, v1X, v2X := tieGroupSums(x)
	vtY, v1Y, v2Y := tieGroupSums(y)

	nf := float64(n)
	v0 := nf * (nf - 1) * (2*nf + 5)
	v := (v0 - vtX - vtY) / 18
	v += v1X * v1Y / (2 * nf * (nf - 1))
	if n > 2 {
		v += v2X * v2Y / (9 * nf * (nf - 1) * (nf - 2))
	}
	return v
}

// tieGroupSums returns sum t(t-1)(2t+5), sum t(t-1) and sum t(t-1)(t-2)
// over the tied-value groups. NaN values never compare equal, so each one
// forms a singleton group and contributes nothing.
func tieGroupSums(data []float64) (vt, v1, v2 float64) {
	groups := make(map[float64]float64, len(data))
	for _, v := range data {
		groups[v]++
	}
	for _, t := range groups {
		vt += t * (t - 1) * (2*t + 5)
		v1 += t * (t - 1)
		v2 += t * (t - 1) * (t - 2)
	}
	return vt, v1, v2
}

// compare is the fallback total ordering: non-orderable values (NaN on
// either side) are treated as greater.
func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	return 1
}
