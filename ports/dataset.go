package ports

// RowIterator is a single ordered scan over a dataset's vectors.
// Next returns the next vector's identifier, optional CpG site ID and
// samples; ok is false once the scan is exhausted. Err reports the first
// underlying read failure, if any.
type RowIterator interface {
	Next() (row DatasetRow, ok bool)
	Err() error
	Close() error
}

// DatasetRow is one named numeric vector as produced by a dataset scan.
// CpGSiteID is empty unless the dataset carries per-probe annotation.
type DatasetRow struct {
	ID        string
	CpGSiteID string
	Samples   []float64
}

// Dataset is the input collaborator contract: an ordered collection of
// named numeric vectors. Every Rows call yields a fresh scan from the
// beginning; whether restarting is cheap (materialized) or re-reads the
// source (streamed) is the caller's configuration trade-off.
type Dataset interface {
	// Len returns the number of vectors in the dataset.
	Len() int

	// SampleCount returns the number of samples per vector. All vectors
	// in one dataset share the same count and the same sample ordering.
	SampleCount() int

	// Rows starts a new ordered scan over the dataset.
	Rows() (RowIterator, error)

	// Materialized reports whether repeated scans are free (in-memory)
	// or re-read the underlying source.
	Materialized() bool
}
