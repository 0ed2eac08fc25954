package app

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sergiocarp10/ggca/adapters/stats/adjustment"
	"github.com/sergiocarp10/ggca/adapters/stats/correlation"
	"github.com/sergiocarp10/ggca/domain/analysis"
	"github.com/sergiocarp10/ggca/domain/core"
	"github.com/sergiocarp10/ggca/domain/dataset"
	"github.com/sergiocarp10/ggca/domain/pairing"
	"github.com/sergiocarp10/ggca/internal"
	"github.com/sergiocarp10/ggca/internal/extsort"
	"github.com/sergiocarp10/ggca/ports"
)

// resultQueueSize bounds the producer/aggregator channel; producers block
// on backpressure when the aggregator falls behind.
const resultQueueSize = 1024

// AnalysisService orchestrates the full pipeline: combination generation,
// parallel correlation, threshold filtering, external-sort aggregation,
// streaming adjustment and final truncation.
type AnalysisService struct {
	cfg analysis.Config
}

// NewAnalysisService creates the orchestrator for one immutable config.
func NewAnalysisService(cfg analysis.Config) *AnalysisService {
	return &AnalysisService{cfg: cfg}
}

// Result is the final output of a run.
type Result struct {
	// Results is ordered by ascending raw p-value, or by descending
	// |correlation| when TopNApplied is set.
	Results []analysis.CorrelationResult
	// TotalCombinations counts every combination the generator produced.
	TotalCombinations int
	// EvaluatedCombinations counts combinations whose |statistic| met the
	// threshold; it is also the denominator m for every adjustment method.
	EvaluatedCombinations int
	// TopNApplied reports whether the top-N truncation reordered the output.
	TopNApplied bool
}

// Run executes the analysis. Any failure in any stage aborts the whole run;
// no partial results are returned on error.
func (s *AnalysisService) Run(ctx context.Context, genes, gems ports.Dataset) (*Result, error) {
	start := time.Now()
	runID := core.NewRunID()

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	corr, err := correlation.For(s.cfg.CorrelationMethod, genes.SampleCount())
	if err != nil {
		return nil, err
	}

	if s.cfg.CollectGemDataset && !gems.Materialized() {
		collected, err := dataset.Collect(gems)
		if err != nil {
			return nil, err
		}
		gems = collected
	}

	gen, err := pairing.New(genes, gems, s.cfg.IsAllVsAll)
	if err != nil {
		return nil, err
	}
	total := gen.Total()
	internal.DefaultLogger.Info("run %s: %s/%s over %d combinations (threshold %.2f)",
		runID, s.cfg.CorrelationMethod, s.cfg.AdjustmentMethod, total, s.cfg.CorrelationThreshold)

	sorter, err := extsort.New[analysis.CorrelationResult](analysis.SpillCodec{}, analysis.ByPValueDesc, s.cfg.SortBufSize)
	if err != nil {
		return nil, err
	}
	// releases spilled runs on every abort path; a no-op after the merge
	// iterator has already cleaned up
	defer sorter.Close()

	evaluated, err := s.produce(ctx, gen, corr, sorter)
	if err != nil {
		internal.DefaultLogger.Error("run %s aborted: %v", runID, err)
		return nil, err
	}

	out, err := s.adjust(sorter, evaluated)
	if err != nil {
		internal.DefaultLogger.Error("run %s aborted: %v", runID, err)
		return nil, err
	}

	topNApplied := false
	if s.cfg.KeepTopN > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AbsCorrelation() > out[j].AbsCorrelation()
		})
		if len(out) > s.cfg.KeepTopN {
			out = out[:s.cfg.KeepTopN]
		}
		topNApplied = true
	}

	internal.DefaultLogger.Info("run %s: %d of %d combinations kept in %s",
		runID, len(out), total, time.Since(start).Round(time.Millisecond))

	return &Result{
		Results:               out,
		TotalCombinations:     total,
		EvaluatedCombinations: evaluated,
		TopNApplied:           topNApplied,
	}, nil
}

// produce runs the correlation stage and feeds thresholded results into
// the sorter through a single synchronized ingestion point. It returns the
// number of combinations that passed the threshold.
func (s *AnalysisService) produce(ctx context.Context, gen *pairing.Generator, corr correlation.Correlation, sorter *extsort.Sorter[analysis.CorrelationResult]) (int, error) {
	results := make(chan analysis.CorrelationResult, resultQueueSize)
	var passed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)

	if s.cfg.IsAllVsAll {
		s.produceAllVsAll(ctx, g, gen, corr, results, &passed)
	} else {
		s.produceMatched(ctx, g, gen, corr, results, &passed)
	}

	// Aggregator: single consumer guards the sorter's buffer and spill set.
	aggDone := make(chan error, 1)
	go func() {
		for r := range results {
			if err := sorter.Push(r); err != nil {
				// Unblock producers before reporting; the run is already lost.
				for range results {
				}
				aggDone <- err
				return
			}
		}
		aggDone <- nil
	}()

	err := g.Wait()
	close(results)
	aggErr := <-aggDone
	if err != nil {
		return 0, err
	}
	if aggErr != nil {
		return 0, aggErr
	}
	return int(passed.Load()), nil
}

// produceAllVsAll partitions the cartesian product by gene across a
// bounded worker pool. Each worker opens its own scan of the inner
// dataset per gene; whether that re-reads disk or walks memory is the
// dataset's access mode.
func (s *AnalysisService) produceAllVsAll(ctx context.Context, g *errgroup.Group, gen *pairing.Generator, corr correlation.Correlation, results chan<- analysis.CorrelationResult, passed *atomic.Int64) {
	workers := s.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	geneCh := make(chan ports.DatasetRow)
	g.Go(func() error {
		defer close(geneCh)
		genes, err := gen.GeneStream()
		if err != nil {
			return err
		}
		defer genes.Close()
		for {
			gene, ok := genes.Next()
			if !ok {
				return genes.Err()
			}
			select {
			case geneCh <- gene:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for gene := range geneCh {
				gems, err := gen.GemScan()
				if err != nil {
					return err
				}
				for {
					gem, ok := gems.Next()
					if !ok {
						break
					}
					if err := s.evaluate(ctx, corr, gene, gem, results, passed); err != nil {
						gems.Close()
						return err
					}
				}
				err = gems.Err()
				gems.Close()
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
}

func (s *AnalysisService) produceMatched(ctx context.Context, g *errgroup.Group, gen *pairing.Generator, corr correlation.Correlation, results chan<- analysis.CorrelationResult, passed *atomic.Int64) {
	g.Go(func() error {
		return gen.Combinations(func(c pairing.Combination) error {
			return s.evaluate(ctx, corr, c.Gene, c.Gem, results, passed)
		})
	})
}

// evaluate correlates one combination and forwards it when the statistic
// meets the threshold. Results failing the threshold are dropped here and
// never counted toward the adjustment denominator.
func (s *AnalysisService) evaluate(ctx context.Context, corr correlation.Correlation, gene, gem ports.DatasetRow, results chan<- analysis.CorrelationResult, passed *atomic.Int64) error {
	r, p, err := corr.Correlate(gene.Samples, gem.Samples)
	if err != nil {
		return core.NewComputationError(gene.ID, gem.ID, err)
	}
	if math.IsNaN(r) || math.IsNaN(p) {
		return core.NewComputationError(gene.ID, gem.ID, core.ErrComputation)
	}
	if math.Abs(r) < s.cfg.CorrelationThreshold {
		return nil
	}

	var cpg *string
	if s.cfg.GemContainsCpG {
		site := gem.CpGSiteID
		cpg = &site
	}
	result := analysis.NewCorrelationResult(gene.ID, gem.ID, cpg, r, p)

	select {
	case results <- result:
		passed.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// adjust consumes the globally sorted (descending p) stream, assigns
// adjusted p-values rank m..1 in one forward pass, and returns the final
// sequence in ascending raw p-value order.
func (s *AnalysisService) adjust(sorter *extsort.Sorter[analysis.CorrelationResult], evaluated int) ([]analysis.CorrelationResult, error) {
	adj, err := adjustment.For(s.cfg.AdjustmentMethod, evaluated)
	if err != nil {
		return nil, err
	}

	it, err := sorter.Sort()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make([]analysis.CorrelationResult, 0, evaluated)
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		adjusted := adj.Adjust(*item.PValue)
		item.AdjustedPValue = &adjusted
		out = append(out, item)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
