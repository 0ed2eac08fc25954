package dataset

import (
	"github.com/sergiocarp10/ggca/domain/core"
	"github.com/sergiocarp10/ggca/ports"
)

// NamedVector is an identifier plus an ordered sequence of samples.
// CpGSiteID annotates GEM rows that represent methylation probes; it is
// empty for gene rows and for unannotated GEM datasets.
type NamedVector struct {
	ID        string
	CpGSiteID string
	Samples   []float64
}

// Row converts the vector to the port-level row type.
func (v NamedVector) Row() ports.DatasetRow {
	return ports.DatasetRow{ID: v.ID, CpGSiteID: v.CpGSiteID, Samples: v.Samples}
}

// InMemoryDataset is a fully materialized dataset with free restarts.
type InMemoryDataset struct {
	vectors     []NamedVector
	sampleCount int
}

// NewInMemory builds a materialized dataset, validating that every vector
// carries the same sample count.
func NewInMemory(vectors []NamedVector) (*InMemoryDataset, error) {
	if len(vectors) == 0 {
		return nil, core.NewConfigurationError("dataset is empty")
	}
	n := len(vectors[0].Samples)
	for _, v := range vectors {
		if len(v.Samples) != n {
			return nil, core.NewSampleMismatchError(v.ID, len(v.Samples), n)
		}
	}
	return &InMemoryDataset{vectors: vectors, sampleCount: n}, nil
}

func (d *InMemoryDataset) Len() int           { return len(d.vectors) }
func (d *InMemoryDataset) SampleCount() int   { return d.sampleCount }
func (d *InMemoryDataset) Materialized() bool { return true }

// Vectors exposes the backing vectors, e.g. for re-annotation.
func (d *InMemoryDataset) Vectors() []NamedVector { return d.vectors }

func (d *InMemoryDataset) Rows() (ports.RowIterator, error) {
	return &sliceIterator{vectors: d.vectors}, nil
}

type sliceIterator struct {
	vectors []NamedVector
	pos     int
}

func (it *sliceIterator) Next() (ports.DatasetRow, bool) {
	if it.pos >= len(it.vectors) {
		return ports.DatasetRow{}, false
	}
	row := it.vectors[it.pos].Row()
	it.pos++
	return row, true
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

// ScanFactory opens a fresh sequential scan over an external source.
// The ingestion layer (CSV parsing etc.) lives entirely behind this hook.
type ScanFactory func() (ports.RowIterator, error)

// StreamedDataset is a disk-backed dataset: every Rows call re-opens the
// source through the factory and reads it sequentially, trading repeated
// I/O for memory.
type StreamedDataset struct {
	open        ScanFactory
	length      int
	sampleCount int
}

// NewStreamed wraps a scan factory with the dataset metadata the pipeline
// needs up front (row and sample counts come from the ingestion layer).
func NewStreamed(open ScanFactory, length, sampleCount int) (*StreamedDataset, error) {
	if open == nil {
		return nil, core.NewConfigurationError("streamed dataset requires a scan factory")
	}
	if length <= 0 {
		return nil, core.NewConfigurationError("streamed dataset length must be positive")
	}
	if sampleCount <= 0 {
		return nil, core.NewConfigurationError("streamed dataset sample count must be positive")
	}
	return &StreamedDataset{open: open, length: length, sampleCount: sampleCount}, nil
}

func (d *StreamedDataset) Len() int           { return d.length }
func (d *StreamedDataset) SampleCount() int   { return d.sampleCount }
func (d *StreamedDataset) Materialized() bool { return false }

func (d *StreamedDataset) Rows() (ports.RowIterator, error) {
	return d.open()
}

// Collect materializes a dataset by draining one full scan. Used when the
// caller opts to hold the GEM dataset in memory instead of re-scanning it
// once per gene.
func Collect(d ports.Dataset) (*InMemoryDataset, error) {
	if m, ok := d.(*InMemoryDataset); ok {
		return m, nil
	}
	it, err := d.Rows()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	vectors := make([]NamedVector, 0, d.Len())
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		vectors = append(vectors, NamedVector{ID: row.ID, CpGSiteID: row.CpGSiteID, Samples: row.Samples})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return NewInMemory(vectors)
}
