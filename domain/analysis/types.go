package analysis

import (
	"fmt"
	"math"

	"github.com/sergiocarp10/ggca/domain/core"
)

// CorrelationMethod selects the correlation statistic
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
	Kendall  CorrelationMethod = "kendall"
)

// ParseCorrelationMethod parses a string into a CorrelationMethod
func ParseCorrelationMethod(s string) (CorrelationMethod, error) {
	switch CorrelationMethod(s) {
	case Pearson, Spearman, Kendall:
		return CorrelationMethod(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownMethod, s)
}

// AdjustmentMethod selects the multiple-testing correction
type AdjustmentMethod string

const (
	BenjaminiHochberg  AdjustmentMethod = "benjamini_hochberg"
	BenjaminiYekutieli AdjustmentMethod = "benjamini_yekutieli"
	Bonferroni         AdjustmentMethod = "bonferroni"
)

// ParseAdjustmentMethod parses a string into an AdjustmentMethod
func ParseAdjustmentMethod(s string) (AdjustmentMethod, error) {
	switch AdjustmentMethod(s) {
	case BenjaminiHochberg, BenjaminiYekutieli, Bonferroni:
		return AdjustmentMethod(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownAdjustment, s)
}

// CorrelationResult is the unit entity flowing through the pipeline.
// The three numeric fields and the CpG site ID are optional: nil only in
// the degenerate placeholder construction used by binding layers. Within
// the pipeline they are populated eagerly at creation; the adjusted
// p-value is set exactly once by the adjustment engine.
type CorrelationResult struct {
	Gene           string
	Gem            string
	CpGSiteID      *string
	Correlation    *float64
	PValue         *float64
	AdjustedPValue *float64
}

// NewCorrelationResult builds a populated result for one evaluated combination.
func NewCorrelationResult(gene, gem string, cpgSiteID *string, correlation, pValue float64) CorrelationResult {
	return CorrelationResult{
		Gene:        gene,
		Gem:         gem,
		CpGSiteID:   cpgSiteID,
		Correlation: &correlation,
		PValue:      &pValue,
	}
}

// NewPlaceholder builds the empty construction used by host bindings.
func NewPlaceholder() CorrelationResult {
	return CorrelationResult{}
}

// AbsCorrelation returns the absolute correlation statistic. Calling it on
// a placeholder result is a fatal internal error.
func (r CorrelationResult) AbsCorrelation() float64 {
	return math.Abs(*r.Correlation)
}

// CpGSiteIDDescription returns the CpG site ID, or an empty string when absent.
func (r CorrelationResult) CpGSiteIDDescription() string {
	if r.CpGSiteID == nil {
		return ""
	}
	return *r.CpGSiteID
}

func (r CorrelationResult) String() string {
	return fmt.Sprintf("Gene: %q | GEM: %q | CpG Site ID: %q\n\tCor: %v\n\tP-value: %e\n\tAdjusted p-value: %e",
		r.Gene, r.Gem, r.CpGSiteIDDescription(),
		deref(r.Correlation), deref(r.PValue), deref(r.AdjustedPValue))
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Config is the immutable per-run configuration bundle.
type Config struct {
	// CorrelationMethod selects Pearson, Spearman or Kendall
	CorrelationMethod CorrelationMethod
	// AdjustmentMethod selects the multiple-testing correction
	AdjustmentMethod AdjustmentMethod
	// CorrelationThreshold is the inclusive lower bound on |statistic|;
	// combinations below it are dropped before sorting
	CorrelationThreshold float64
	// IsAllVsAll pairs every gene with every GEM row; false pairs by index
	IsAllVsAll bool
	// GemContainsCpG marks the GEM dataset rows as annotated methylation probes
	GemContainsCpG bool
	// KeepTopN truncates the final output to the N strongest results; 0 keeps all
	KeepTopN int
	// SortBufSize is the number of results buffered in memory before spilling
	SortBufSize int
	// CollectGemDataset materializes the GEM dataset in memory instead of
	// re-scanning it once per gene
	CollectGemDataset bool
	// Workers bounds the concurrent per-gene correlation workers; 0 uses GOMAXPROCS
	Workers int
}

// Validate checks the configuration before any computation starts.
func (c Config) Validate() error {
	if _, err := ParseCorrelationMethod(string(c.CorrelationMethod)); err != nil {
		return err
	}
	if _, err := ParseAdjustmentMethod(string(c.AdjustmentMethod)); err != nil {
		return err
	}
	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return core.NewConfigurationError("correlation threshold must be in [0, 1]")
	}
	if c.KeepTopN < 0 {
		return core.NewConfigurationError("keep_top_n cannot be negative")
	}
	if c.SortBufSize <= 0 {
		return core.NewConfigurationError("sort buffer size must be positive")
	}
	if c.Workers < 0 {
		return core.NewConfigurationError("workers cannot be negative")
	}
	return nil
}
