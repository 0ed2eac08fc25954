// Package extsort implements a bounded-memory external merge sort: items
// are buffered up to a configured capacity, spilled as sorted binary runs
// to scratch files, and merged back through a k-way min-heap. The sorter
// is generic and knows nothing about the items beyond the caller-supplied
// codec and ordering.
package extsort

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sergiocarp10/ggca/domain/core"
	"github.com/sergiocarp10/ggca/internal"
)

// Codec serializes items for spilled runs. Decode must return io.EOF at a
// clean end of run and io.ErrUnexpectedEOF on a truncated record.
type Codec[T any] interface {
	Encode(w io.Writer, item T) error
	Decode(r *bufio.Reader) (T, error)
}

// Sorter accepts items in any order and yields them sorted. Not safe for
// concurrent use; producers must funnel through a single ingestion point.
type Sorter[T any] struct {
	codec    Codec[T]
	less     func(a, b T) bool
	capacity int
	buffer   []T
	dir      string
	runs     []string
	sorted   bool
}

// New creates a sorter that spills to disk once capacity buffered items is
// exceeded. The scratch directory is created lazily on first spill.
func New[T any](codec Codec[T], less func(a, b T) bool, capacity int) (*Sorter[T], error) {
	if capacity <= 0 {
		return nil, core.NewConfigurationError("sort buffer capacity must be positive")
	}
	return &Sorter[T]{
		codec:    codec,
		less:     less,
		capacity: capacity,
		buffer:   make([]T, 0, capacity),
	}, nil
}

// Push adds one item, spilling the buffer as a sorted run when full.
func (s *Sorter[T]) Push(item T) error {
	if s.sorted {
		return core.NewResourceError("push", fmt.Errorf("sorter already finalized"))
	}
	s.buffer = append(s.buffer, item)
	if len(s.buffer) >= s.capacity {
		return s.spill()
	}
	return nil
}

func (s *Sorter[T]) spill() error {
	if s.dir == "" {
		dir := filepath.Join(os.TempDir(), "ggca-sort-"+core.NewID().String())
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return core.NewResourceError("create scratch dir", err)
		}
		s.dir = dir
	}
	sort.SliceStable(s.buffer, func(i, j int) bool { return s.less(s.buffer[i], s.buffer[j]) })

	path := filepath.Join(s.dir, fmt.Sprintf("run-%04d.bin", len(s.runs)))
	f, err := os.Create(path)
	if err != nil {
		return core.NewResourceError("create spill run", err)
	}
	w := bufio.NewWriter(f)
	for _, item := range s.buffer {
		if err := s.codec.Encode(w, item); err != nil {
			f.Close()
			return core.NewResourceError("encode spill record", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return core.NewResourceError("flush spill run", err)
	}
	if err := f.Close(); err != nil {
		return core.NewResourceError("close spill run", err)
	}
	s.runs = append(s.runs, path)
	internal.DefaultLogger.Debug("spilled run %d (%d items) to %s", len(s.runs)-1, len(s.buffer), path)
	s.buffer = s.buffer[:0]
	return nil
}

// Close drops the buffer and removes any spilled runs still on disk.
// Callers that abort before Sort, or whose merge fails partway, use it to
// release the scratch set; after the merge iterator has cleaned up, Close
// is a no-op.
func (s *Sorter[T]) Close() error {
	s.buffer = nil
	s.runs = nil
	if s.dir == "" {
		return nil
	}
	dir := s.dir
	s.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return core.NewResourceError("remove scratch dir", err)
	}
	return nil
}

// Sort finalizes ingestion and returns an iterator over the globally
// sorted sequence. The caller must Close the iterator to release scratch
// files.
func (s *Sorter[T]) Sort() (*Iterator[T], error) {
	if s.sorted {
		return nil, core.NewResourceError("sort", fmt.Errorf("sorter already finalized"))
	}
	s.sorted = true
	sort.SliceStable(s.buffer, func(i, j int) bool { return s.less(s.buffer[i], s.buffer[j]) })

	it := &Iterator[T]{dir: s.dir, heap: mergeHeap[T]{less: s.less}}
	if len(s.buffer) > 0 {
		buf := s.buffer
		pos := 0
		it.push(&source[T]{next: func() (T, error) {
			var zero T
			if pos >= len(buf) {
				return zero, io.EOF
			}
			item := buf[pos]
			pos++
			return item, nil
		}})
	}
	for _, path := range s.runs {
		f, err := os.Open(path)
		if err != nil {
			it.Close()
			return nil, core.NewResourceError("open spill run", err)
		}
		it.files = append(it.files, f)
		r := bufio.NewReader(f)
		it.push(&source[T]{next: func() (T, error) { return s.codec.Decode(r) }})
	}
	if err := it.err; err != nil {
		it.Close()
		return nil, err
	}
	return it, nil
}
