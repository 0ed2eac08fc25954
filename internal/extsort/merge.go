package extsort

import (
	"container/heap"
	"io"
	"os"

	"github.com/sergiocarp10/ggca/domain/core"
)

// source is one sorted run: the staged head item plus a pull function that
// returns io.EOF when the run is exhausted.
type source[T any] struct {
	head T
	next func() (T, error)
}

type mergeHeap[T any] struct {
	less    func(a, b T) bool
	sources []*source[T]
}

func (h *mergeHeap[T]) Len() int            { return len(h.sources) }
func (h *mergeHeap[T]) Less(i, j int) bool  { return h.less(h.sources[i].head, h.sources[j].head) }
func (h *mergeHeap[T]) Swap(i, j int)       { h.sources[i], h.sources[j] = h.sources[j], h.sources[i] }
func (h *mergeHeap[T]) Push(x any)          { h.sources = append(h.sources, x.(*source[T])) }
func (h *mergeHeap[T]) Pop() any {
	last := len(h.sources) - 1
	s := h.sources[last]
	h.sources = h.sources[:last]
	return s
}

// Iterator yields the globally sorted sequence from the k-way merge of all
// spilled runs plus the final in-memory buffer.
type Iterator[T any] struct {
	heap  mergeHeap[T]
	files []*os.File
	dir   string
	err   error
}

// push stages a run's first item and adds it to the heap. Runs that are
// already empty are dropped.
func (it *Iterator[T]) push(s *source[T]) {
	item, err := s.next()
	if err == io.EOF {
		return
	}
	if err != nil {
		it.err = core.NewResourceError("read spill run", err)
		return
	}
	s.head = item
	heap.Push(&it.heap, s)
}

// Next returns the next item in sort order; ok is false once the merge is
// exhausted. Any decode failure is fatal for the whole merge.
func (it *Iterator[T]) Next() (item T, ok bool, err error) {
	var zero T
	if it.err != nil {
		return zero, false, it.err
	}
	if it.heap.Len() == 0 {
		return zero, false, nil
	}
	s := it.heap.sources[0]
	item = s.head

	refill, err := s.next()
	switch {
	case err == io.EOF:
		heap.Pop(&it.heap)
	case err != nil:
		it.err = core.NewResourceError("read spill run", err)
		return zero, false, it.err
	default:
		s.head = refill
		heap.Fix(&it.heap, 0)
	}
	return item, true, nil
}

// Close releases the scratch files and removes the spill directory.
func (it *Iterator[T]) Close() error {
	for _, f := range it.files {
		f.Close()
	}
	it.files = nil
	if it.dir != "" {
		if err := os.RemoveAll(it.dir); err != nil {
			return core.NewResourceError("remove scratch dir", err)
		}
		it.dir = ""
	}
	return nil
}
