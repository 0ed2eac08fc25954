package app

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergiocarp10/ggca/domain/analysis"
	"github.com/sergiocarp10/ggca/domain/core"
	"github.com/sergiocarp10/ggca/domain/dataset"
	"github.com/sergiocarp10/ggca/internal/testkit"
	"github.com/sergiocarp10/ggca/ports"
)

var (
	baseSamples = []float64{1, 2, 3, 4, 5}
	perfectGem  = []float64{1, 2, 3, 4, 5} // r = 1.0
	strongGem   = []float64{1, 2, 4, 3, 5} // r = 0.9, p ~ 0.03739
	mediumGem   = []float64{2, 1, 4, 3, 5} // r = 0.8, p ~ 0.10409
)

func testConfig() analysis.Config {
	return analysis.Config{
		CorrelationMethod:    analysis.Pearson,
		AdjustmentMethod:     analysis.BenjaminiHochberg,
		CorrelationThreshold: 0,
		IsAllVsAll:           true,
		SortBufSize:          1000,
	}
}

func mustDataset(t *testing.T, vectors ...dataset.NamedVector) *dataset.InMemoryDataset {
	t.Helper()
	d, err := dataset.NewInMemory(vectors)
	require.NoError(t, err)
	return d
}

func TestRunPerfectCorrelation(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t, dataset.NamedVector{ID: "GEM1", Samples: perfectGem})

	result, err := NewAnalysisService(testConfig()).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalCombinations)
	assert.Equal(t, 1, result.EvaluatedCombinations)
	require.Len(t, result.Results, 1)

	r := result.Results[0]
	assert.Equal(t, "GENE1", r.Gene)
	assert.Equal(t, "GEM1", r.Gem)
	assert.Nil(t, r.CpGSiteID)
	assert.InDelta(t, 1.0, *r.Correlation, 1e-12)
	assert.InDelta(t, 0.0, *r.PValue, 1e-12)
	assert.InDelta(t, 0.0, *r.AdjustedPValue, 1e-12)
}

func TestRunThresholdExcludesWeakPairs(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t,
		dataset.NamedVector{ID: "GEM_PERFECT", Samples: perfectGem},
		dataset.NamedVector{ID: "GEM_MEDIUM", Samples: mediumGem},
	)

	cfg := testConfig()
	cfg.CorrelationThreshold = 0.9
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	// the 0.8 correlation is excluded from output and from the passed
	// count, but still counted as a considered combination
	assert.Equal(t, 2, result.TotalCombinations)
	assert.Equal(t, 1, result.EvaluatedCombinations)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "GEM_PERFECT", result.Results[0].Gem)
}

// fixedCorrelation always reports the same statistic and p-value.
type fixedCorrelation struct {
	r, p float64
}

func (f fixedCorrelation) Correlate(_, _ []float64) (float64, float64, error) {
	return f.r, f.p, nil
}

func TestEvaluateThresholdIsInclusive(t *testing.T) {
	cfg := testConfig()
	cfg.CorrelationThreshold = 0.9
	svc := NewAnalysisService(cfg)

	gene := ports.DatasetRow{ID: "G", Samples: baseSamples}
	gem := ports.DatasetRow{ID: "M", Samples: perfectGem}

	results := make(chan analysis.CorrelationResult, 2)
	var passed atomic.Int64

	// exactly at the threshold passes
	err := svc.evaluate(context.Background(), fixedCorrelation{r: 0.9, p: 0.05}, gene, gem, results, &passed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), passed.Load())
	assert.Len(t, results, 1)

	// just below is dropped without error
	err = svc.evaluate(context.Background(), fixedCorrelation{r: 0.89, p: 0.05}, gene, gem, results, &passed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), passed.Load())
	assert.Len(t, results, 1)

	// negative correlations compare by magnitude
	err = svc.evaluate(context.Background(), fixedCorrelation{r: -0.95, p: 0.05}, gene, gem, results, &passed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), passed.Load())
}

func TestRunKeepTopNByStrength(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t,
		dataset.NamedVector{ID: "GEM_MEDIUM", Samples: mediumGem},
		dataset.NamedVector{ID: "GEM_PERFECT", Samples: perfectGem},
		dataset.NamedVector{ID: "GEM_STRONG", Samples: strongGem},
	)

	cfg := testConfig()
	cfg.KeepTopN = 1
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	assert.True(t, result.TopNApplied)
	assert.Equal(t, 3, result.EvaluatedCombinations)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "GEM_PERFECT", result.Results[0].Gem)
}

func TestRunBonferroniExactValues(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t,
		dataset.NamedVector{ID: "GEM_STRONG", Samples: strongGem},
		dataset.NamedVector{ID: "GEM_MEDIUM", Samples: mediumGem},
	)

	cfg := testConfig()
	cfg.AdjustmentMethod = analysis.Bonferroni
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	// ascending raw p-value: strong (0.03739) before medium (0.10409),
	// each adjusted to exactly raw*m with m=2
	assert.Equal(t, "GEM_STRONG", result.Results[0].Gem)
	assert.InDelta(t, 2*0.037386, *result.Results[0].AdjustedPValue, 1e-5)
	assert.Equal(t, "GEM_MEDIUM", result.Results[1].Gem)
	assert.InDelta(t, 2*0.104088, *result.Results[1].AdjustedPValue, 1e-5)
}

func TestRunMatchedPairing(t *testing.T) {
	genes := mustDataset(t,
		dataset.NamedVector{ID: "G0", Samples: baseSamples},
		dataset.NamedVector{ID: "G1", Samples: baseSamples},
	)
	gems := mustDataset(t,
		dataset.NamedVector{ID: "M0", Samples: perfectGem},
		dataset.NamedVector{ID: "M1", Samples: strongGem},
	)

	cfg := testConfig()
	cfg.IsAllVsAll = false
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCombinations)
	require.Len(t, result.Results, 2)
	pairs := map[string]string{}
	for _, r := range result.Results {
		pairs[r.Gene] = r.Gem
	}
	assert.Equal(t, map[string]string{"G0": "M0", "G1": "M1"}, pairs)
}

func TestRunMatchedRejectsUnequalSizes(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "G0", Samples: baseSamples})
	gems := mustDataset(t,
		dataset.NamedVector{ID: "M0", Samples: perfectGem},
		dataset.NamedVector{ID: "M1", Samples: strongGem},
	)

	cfg := testConfig()
	cfg.IsAllVsAll = false
	_, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	assert.ErrorIs(t, err, core.ErrDatasetSizes)
}

func TestRunCpGAnnotationFlowsThrough(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t,
		dataset.NamedVector{ID: "GEM1", CpGSiteID: "cg0001", Samples: perfectGem},
		dataset.NamedVector{ID: "GEM1", CpGSiteID: "cg0002", Samples: strongGem},
	)

	cfg := testConfig()
	cfg.GemContainsCpG = true
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCombinations)
	require.Len(t, result.Results, 2)
	sites := map[string]bool{}
	for _, r := range result.Results {
		require.NotNil(t, r.CpGSiteID)
		assert.Equal(t, "GEM1", r.Gem)
		sites[*r.CpGSiteID] = true
	}
	assert.Equal(t, map[string]bool{"cg0001": true, "cg0002": true}, sites)
}

func countScratchDirs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(os.TempDir())
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "ggca-sort-") {
			n++
		}
	}
	return n
}

func TestRunFailureReleasesScratchFiles(t *testing.T) {
	genes := mustDataset(t,
		dataset.NamedVector{ID: "G0", Samples: baseSamples},
		dataset.NamedVector{ID: "G1", Samples: strongGem},
		dataset.NamedVector{ID: "FLAT", Samples: []float64{3, 3, 3, 3, 3}},
	)
	gems := mustDataset(t,
		dataset.NamedVector{ID: "M0", Samples: perfectGem},
		dataset.NamedVector{ID: "M1", Samples: strongGem},
		dataset.NamedVector{ID: "M2", Samples: mediumGem},
	)

	before := countScratchDirs(t)

	cfg := testConfig()
	cfg.SortBufSize = 1 // every accepted result spills a run immediately
	cfg.Workers = 1     // healthy genes spill before the flat one aborts
	_, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.Error(t, err)
	assert.True(t, core.IsComputationError(err))

	assert.Equal(t, before, countScratchDirs(t), "aborted run left spill dirs behind")
}

func TestRunZeroVarianceIsFatal(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "FLAT", Samples: []float64{3, 3, 3, 3, 3}})
	gems := mustDataset(t, dataset.NamedVector{ID: "GEM1", Samples: perfectGem})

	_, err := NewAnalysisService(testConfig()).Run(context.Background(), genes, gems)
	require.Error(t, err)
	assert.True(t, core.IsComputationError(err))
}

func TestRunTooFewSamples(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "G", Samples: []float64{1, 2}})
	gems := mustDataset(t, dataset.NamedVector{ID: "M", Samples: []float64{2, 1}})

	_, err := NewAnalysisService(testConfig()).Run(context.Background(), genes, gems)
	assert.ErrorIs(t, err, core.ErrTooFewSamples)
}

func TestRunInvalidConfig(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "G", Samples: baseSamples})
	gems := mustDataset(t, dataset.NamedVector{ID: "M", Samples: perfectGem})

	cfg := testConfig()
	cfg.SortBufSize = 0
	_, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	assert.True(t, core.IsConfigurationError(err))
}

func TestRunEmptyResultWhenNothingPasses(t *testing.T) {
	genes := mustDataset(t, dataset.NamedVector{ID: "GENE1", Samples: baseSamples})
	gems := mustDataset(t, dataset.NamedVector{ID: "GEM_MEDIUM", Samples: mediumGem})

	cfg := testConfig()
	cfg.CorrelationThreshold = 0.95
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	// m = 0: empty output, no division-by-zero fault
	assert.Equal(t, 1, result.TotalCombinations)
	assert.Equal(t, 0, result.EvaluatedCombinations)
	assert.Empty(t, result.Results)
}

func TestRunLargeSyntheticWithSpills(t *testing.T) {
	genes, gems, err := testkit.SyntheticDatasets(30, 20, 40, 11)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.SortBufSize = 16 // force spilled runs and a real k-way merge
	cfg.Workers = 4
	result, err := NewAnalysisService(cfg).Run(context.Background(), genes, gems)
	require.NoError(t, err)

	assert.Equal(t, 600, result.TotalCombinations)
	assert.Equal(t, 600, result.EvaluatedCombinations)
	require.Len(t, result.Results, 600)

	// globally ordered by ascending raw p-value
	sorted := sort.SliceIsSorted(result.Results, func(i, j int) bool {
		return *result.Results[i].PValue < *result.Results[j].PValue
	})
	assert.True(t, sorted)

	// step-up monotonicity: adjusted values never decrease, each within [0, 1]
	previous := 0.0
	for _, r := range result.Results {
		require.NotNil(t, r.AdjustedPValue)
		assert.GreaterOrEqual(t, *r.AdjustedPValue, previous)
		assert.LessOrEqual(t, *r.AdjustedPValue, 1.0)
		assert.GreaterOrEqual(t, *r.Correlation, -1.0)
		assert.LessOrEqual(t, *r.Correlation, 1.0)
		previous = *r.AdjustedPValue
	}
}

func TestRunStreamedGemScansPerGene(t *testing.T) {
	genes, gemSource, err := testkit.SyntheticDatasets(5, 4, 30, 3)
	require.NoError(t, err)

	vectors := make([]dataset.NamedVector, 0, gemSource.Len())
	it, err := gemSource.Rows()
	require.NoError(t, err)
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		vectors = append(vectors, dataset.NamedVector{ID: row.ID, Samples: row.Samples})
	}

	scans := 0
	streamed, err := testkit.StreamedFrom(vectors, func() { scans++ })
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Workers = 1
	cfg.CollectGemDataset = false
	_, err = NewAnalysisService(cfg).Run(context.Background(), genes, streamed)
	require.NoError(t, err)
	// one independent inner re-scan per outer gene
	assert.Equal(t, 5, scans)

	scans = 0
	streamed, err = testkit.StreamedFrom(vectors, func() { scans++ })
	require.NoError(t, err)
	cfg.CollectGemDataset = true
	_, err = NewAnalysisService(cfg).Run(context.Background(), genes, streamed)
	require.NoError(t, err)
	// materialized once up front, then scanned in memory
	assert.Equal(t, 1, scans)
}
