// Package testkit generates deterministic synthetic gene/GEM datasets for
// tests and the demo binary.
package testkit

import (
	"fmt"
	"math/rand"

	"github.com/sergiocarp10/ggca/domain/dataset"
	"github.com/sergiocarp10/ggca/ports"
)

// SyntheticDatasets builds a gene and a GEM dataset with the given shape.
// Roughly a third of the GEM rows track a gene vector with additive noise
// so realistic threshold/adjustment behavior shows up; the rest are pure
// noise. The same seed always yields the same data.
func SyntheticDatasets(geneCount, gemCount, sampleCount int, seed int64) (*dataset.InMemoryDataset, *dataset.InMemoryDataset, error) {
	rng := rand.New(rand.NewSource(seed))

	genes := make([]dataset.NamedVector, geneCount)
	for i := range genes {
		genes[i] = dataset.NamedVector{
			ID:      fmt.Sprintf("GENE_%04d", i),
			Samples: noise(rng, sampleCount),
		}
	}

	gems := make([]dataset.NamedVector, gemCount)
	for i := range gems {
		samples := noise(rng, sampleCount)
		if i%3 == 0 {
			base := genes[rng.Intn(geneCount)].Samples
			for k := range samples {
				samples[k] = base[k] + 0.3*rng.NormFloat64()
			}
		}
		gems[i] = dataset.NamedVector{
			ID:      fmt.Sprintf("GEM_%04d", i),
			Samples: samples,
		}
	}

	geneDS, err := dataset.NewInMemory(genes)
	if err != nil {
		return nil, nil, err
	}
	gemDS, err := dataset.NewInMemory(gems)
	if err != nil {
		return nil, nil, err
	}
	return geneDS, gemDS, nil
}

// AnnotateCpG tags GEM vectors with synthetic methylation probe IDs,
// expanding each logical GEM entity into probesPer annotated rows.
func AnnotateCpG(gems []dataset.NamedVector, probesPer int, seed int64) []dataset.NamedVector {
	rng := rand.New(rand.NewSource(seed))
	out := make([]dataset.NamedVector, 0, len(gems)*probesPer)
	for _, gem := range gems {
		for p := 0; p < probesPer; p++ {
			samples := make([]float64, len(gem.Samples))
			for k, v := range gem.Samples {
				samples[k] = v + 0.1*rng.NormFloat64()
			}
			out = append(out, dataset.NamedVector{
				ID:        gem.ID,
				CpGSiteID: fmt.Sprintf("cg%08d", rng.Intn(100_000_000)),
				Samples:   samples,
			})
		}
	}
	return out
}

// StreamedFrom wraps vectors in a disk-backed-style dataset whose every
// Rows call is a fresh sequential scan. onScan, when non-nil, is invoked
// once per scan so tests can count restarts.
func StreamedFrom(vectors []dataset.NamedVector, onScan func()) (*dataset.StreamedDataset, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors")
	}
	factory := func() (ports.RowIterator, error) {
		if onScan != nil {
			onScan()
		}
		mem, err := dataset.NewInMemory(vectors)
		if err != nil {
			return nil, err
		}
		return mem.Rows()
	}
	return dataset.NewStreamed(factory, len(vectors), len(vectors[0].Samples))
}

func noise(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}
