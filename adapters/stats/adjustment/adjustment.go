// Package adjustment implements the streaming multiple-testing
// corrections. The engine consumes raw p-values ordered descending, rank
// m down to 1, so the BH/BY step-up running minimum needs exactly one
// forward pass; Bonferroni ignores order entirely.
package adjustment

import (
	"fmt"

	"github.com/sergiocarp10/ggca/domain/analysis"
	"github.com/sergiocarp10/ggca/domain/core"
)

// Adjustment assigns adjusted p-values over one run. Adjust must be called
// once per result, in descending raw p-value order; instances are stateful
// and single-use.
type Adjustment interface {
	Adjust(pValue float64) float64
}

// For builds the adjustment for the selected method given the total number
// of evaluated combinations m. m = 0 is valid: the stream is empty and
// Adjust is never called.
func For(method analysis.AdjustmentMethod, total int) (Adjustment, error) {
	m := float64(total)
	switch method {
	case analysis.Bonferroni:
		return &bonferroni{total: m}, nil
	case analysis.BenjaminiHochberg:
		return &benjaminiHochberg{total: m, rank: m, previous: 1}, nil
	case analysis.BenjaminiYekutieli:
		return &benjaminiHochberg{total: m * harmonicSum(total), rank: m, previous: 1}, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownAdjustment, method)
}

type bonferroni struct {
	total float64
}

func (b *bonferroni) Adjust(pValue float64) float64 {
	adjusted := pValue * b.total
	if adjusted > 1 {
		return 1
	}
	return adjusted
}

// benjaminiHochberg implements the step-up procedure as a running minimum
// over the descending stream. Seeding previous at 1 doubles as the cap.
// Benjamini-Yekutieli reuses it with the numerator pre-scaled by the
// harmonic sum c(m).
type benjaminiHochberg struct {
	total    float64
	rank     float64
	previous float64
}

func (b *benjaminiHochberg) Adjust(pValue float64) float64 {
	candidate := pValue * b.total / b.rank
	if candidate < b.previous {
		b.previous = candidate
	}
	b.rank--
	return b.previous
}

// harmonicSum computes c(m) = sum of 1/i for i in 1..m.
func harmonicSum(m int) float64 {
	sum := 0.0
	for i := 1; i <= m; i++ {
		sum += 1 / float64(i)
	}
	return sum
}
