// Package correlation implements the Pearson, Spearman and Kendall
// strategies. Each strategy takes two equal-length sample vectors and
// returns the raw statistic plus a two-sided raw p-value; distribution
// primitives come from gonum.
package correlation

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/sergiocarp10/ggca/domain/analysis"
	"github.com/sergiocarp10/ggca/domain/core"
)

// Correlation computes a raw statistic in [-1, 1] and a two-sided raw
// p-value in [0, 1] for one pair of aligned vectors. Implementations are
// stateless after construction and safe for concurrent use.
type Correlation interface {
	Correlate(x, y []float64) (statistic, pValue float64, err error)
}

// For returns the strategy for the selected method, pre-sized for the
// shared sample count.
func For(method analysis.CorrelationMethod, sampleCount int) (Correlation, error) {
	switch method {
	case analysis.Pearson:
		if sampleCount < 3 {
			return nil, fmt.Errorf("%w: pearson needs at least 3 samples, got %d", core.ErrTooFewSamples, sampleCount)
		}
		return newPearson(sampleCount), nil
	case analysis.Spearman:
		if sampleCount < 3 {
			return nil, fmt.Errorf("%w: spearman needs at least 3 samples, got %d", core.ErrTooFewSamples, sampleCount)
		}
		return newSpearman(sampleCount), nil
	case analysis.Kendall:
		if sampleCount < 2 {
			return nil, fmt.Errorf("%w: kendall needs at least 2 samples, got %d", core.ErrTooFewSamples, sampleCount)
		}
		return newKendall(), nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
}

// checkVariance rejects vectors on which no correlation statistic is
// defined. Never coerced to a default: a zero-variance input is a fatal
// computation error for the run.
func checkVariance(x, y []float64) error {
	sx, err := stats.StandardDeviationSample(stats.Float64Data(x))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrComputation, err)
	}
	if sx == 0 {
		return core.ErrZeroVariance
	}
	sy, err := stats.StandardDeviationSample(stats.Float64Data(y))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrComputation, err)
	}
	if sy == 0 {
		return core.ErrZeroVariance
	}
	return nil
}

// clamp pulls a coefficient back into [-1, 1] after floating point drift.
func clamp(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
