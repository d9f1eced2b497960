// Package topk provides a bounded frequency table that tracks the most
// frequent values of a stream.
//
// Tracked values are counted exactly. Once the table is full, a newcomer's
// count is estimated with a Count-Min sketch that sees every value. The sketch
// is built on the first newcomer after the table fills, from the exact counts
// held at that point, so a table that never overflows never allocates it. The
// newcomer replaces the least frequent entry only when its estimate is
// strictly greater. Among entries tied at the minimum the most recently
// inserted one is evicted, so earlier keys are retained.
package topk

import (
	"cmp"
	"container/heap"
	"errors"
	"slices"

	"github.com/Sumatoshi-tech/datalens/pkg/alg/cms"
)

// Sketch sizing for newcomer estimates.
const (
	sketchEpsilon = 0.0005
	sketchDelta   = 0.01
)

// ErrInvalidCapacity is returned when the capacity is not positive.
var ErrInvalidCapacity = errors.New("topk: capacity must be positive")

// Entry is a value with its (possibly estimated) count.
type Entry struct {
	Value string
	Count int64
}

type item struct {
	value string
	count int64
	seq   uint64
	pos   int
}

// minHeap orders items so that the root is the eviction candidate.
type minHeap []*item

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}

	return h[i].seq > h[j].seq
}

func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *minHeap) Push(x any) {
	it, _ := x.(*item)
	it.pos = len(*h)
	*h = append(*h, it)
}

func (h *minHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]

	return it
}

// Table is a bounded top-k frequency table. It is not safe for concurrent use.
type Table struct {
	index    map[string]*item
	heap     minHeap
	sketch   *cms.Sketch
	capacity int
	seq      uint64
	evicted  int64
}

// New creates a table that tracks at most capacity distinct values.
func New(capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &Table{
		index:    make(map[string]*item),
		capacity: capacity,
	}, nil
}

// Add records one occurrence of value.
func (t *Table) Add(value string) {
	if it, ok := t.index[value]; ok {
		it.count++
		heap.Fix(&t.heap, it.pos)

		if t.sketch != nil {
			t.sketch.Add(value, 1)
		}

		return
	}

	t.seq++

	if len(t.heap) < t.capacity {
		// The table has never been full, so this is the first occurrence.
		it := &item{value: value, count: 1, seq: t.seq}
		t.index[value] = it
		heap.Push(&t.heap, it)

		return
	}

	if t.sketch == nil {
		t.sketch = t.seedSketch()
	}

	estimate := t.sketch.Add(value, 1)

	root := t.heap[0]
	if estimate <= root.count {
		return
	}

	delete(t.index, root.value)

	t.evicted++

	root.value = value
	root.count = estimate
	root.seq = t.seq
	t.index[value] = root
	heap.Fix(&t.heap, 0)
}

// seedSketch builds the newcomer sketch from the tracked counts. It runs
// before any eviction, when the table still holds every value seen.
func (t *Table) seedSketch() *cms.Sketch {
	sketch, err := cms.New(sketchEpsilon, sketchDelta)
	if err != nil {
		panic("topk: invalid sketch bounds: " + err.Error())
	}

	for _, it := range t.heap {
		sketch.Add(it.value, it.count)
	}

	return sketch
}

// Sketched reports whether the newcomer sketch has been allocated.
func (t *Table) Sketched() bool {
	return t.sketch != nil
}

// Len returns the number of tracked values.
func (t *Table) Len() int {
	return len(t.heap)
}

// Evictions returns how many tracked values were replaced by newcomers.
func (t *Table) Evictions() int64 {
	return t.evicted
}

// Top returns up to n entries ordered by descending count. Ties keep the
// earlier-inserted value first.
func (t *Table) Top(n int) []Entry {
	items := slices.Clone(t.heap)
	slices.SortFunc(items, func(a, b *item) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}

		return cmp.Compare(a.seq, b.seq)
	})

	n = min(n, len(items))
	out := make([]Entry, n)

	for i := range n {
		out[i] = Entry{Value: items[i].value, Count: items[i].count}
	}

	return out
}
