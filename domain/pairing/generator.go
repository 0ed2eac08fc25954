// Package pairing produces the stream of gene/GEM vector combinations to
// be correlated. CpG probe expansion needs no special casing here: an
// annotated GEM dataset carries one row per probe, so the cartesian
// product already emits one combination per (gene, probe) pair.
package pairing

import (
	"github.com/sergiocarp10/ggca/domain/core"
	"github.com/sergiocarp10/ggca/ports"
)

// Combination is one pairing of aligned vectors plus identity metadata.
type Combination struct {
	Gene ports.DatasetRow
	Gem  ports.DatasetRow
}

// Generator enumerates combinations in one of two modes: the all-vs-all
// cartesian product, or index-matched 1:1 pairing for externally aligned
// datasets.
type Generator struct {
	genes    ports.Dataset
	gems     ports.Dataset
	allVsAll bool
}

// New validates the dataset pairing up front. Matched mode requires equal
// sizes; both modes require a shared sample count.
func New(genes, gems ports.Dataset, allVsAll bool) (*Generator, error) {
	if genes.SampleCount() != gems.SampleCount() {
		return nil, core.NewSampleMismatchError("gem dataset", gems.SampleCount(), genes.SampleCount())
	}
	if !allVsAll && genes.Len() != gems.Len() {
		return nil, core.ErrDatasetSizes
	}
	return &Generator{genes: genes, gems: gems, allVsAll: allVsAll}, nil
}

// Total is the number of combinations the generator will produce before
// any threshold filtering.
func (g *Generator) Total() int {
	if g.allVsAll {
		return g.genes.Len() * g.gems.Len()
	}
	return g.genes.Len()
}

// GeneStream opens the single sequential pass over the outer dataset.
func (g *Generator) GeneStream() (ports.RowIterator, error) {
	return g.genes.Rows()
}

// GemScan opens a fresh scan over the inner dataset for one outer row.
// Materialized datasets restart for free; disk-backed ones re-read the
// source, which is the configured memory/I-O trade-off.
func (g *Generator) GemScan() (ports.RowIterator, error) {
	return g.gems.Rows()
}

// Combinations streams every pairing sequentially through emit. The
// parallel all-vs-all path in the orchestrator partitions by gene via
// GeneStream/GemScan instead; this covers matched mode and sequential use.
func (g *Generator) Combinations(emit func(Combination) error) error {
	if g.allVsAll {
		return g.cartesian(emit)
	}
	return g.matched(emit)
}

func (g *Generator) cartesian(emit func(Combination) error) error {
	genes, err := g.genes.Rows()
	if err != nil {
		return err
	}
	defer genes.Close()

	for {
		gene, ok := genes.Next()
		if !ok {
			break
		}
		gems, err := g.gems.Rows()
		if err != nil {
			return err
		}
		for {
			gem, ok := gems.Next()
			if !ok {
				break
			}
			if err := emit(Combination{Gene: gene, Gem: gem}); err != nil {
				gems.Close()
				return err
			}
		}
		if err := gems.Err(); err != nil {
			gems.Close()
			return err
		}
		gems.Close()
	}
	return genes.Err()
}

func (g *Generator) matched(emit func(Combination) error) error {
	genes, err := g.genes.Rows()
	if err != nil {
		return err
	}
	defer genes.Close()
	gems, err := g.gems.Rows()
	if err != nil {
		return err
	}
	defer gems.Close()

	for {
		gene, ok := genes.Next()
		if !ok {
			break
		}
		gem, ok := gems.Next()
		if !ok {
			break
		}
		if err := emit(Combination{Gene: gene, Gem: gem}); err != nil {
			return err
		}
	}
	if err := genes.Err(); err != nil {
		return err
	}
	return gems.Err()
}
