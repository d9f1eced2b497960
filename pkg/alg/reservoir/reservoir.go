// Package reservoir provides a fixed-capacity uniform sample over a stream of
// unknown length (Vitter's Algorithm R).
//
// Replacement positions come from a seeded splitmix64 stream, so the retained
// sample is a pure function of the sequence of offered items. Feeding the same
// values in the same order always yields the same sample.
package reservoir

import "github.com/Sumatoshi-tech/datalens/pkg/alg/hashutil"

// Sample is a bounded uniform reservoir. It is not safe for concurrent use.
type Sample[T any] struct {
	items []T
	rng   *hashutil.Stream
	size  int
	seen  uint64
}

// New returns a reservoir holding at most capacity items, seeded with seed.
// A non-positive capacity yields a reservoir that retains nothing.
func New[T any](capacity int, seed uint64) *Sample[T] {
	capacity = max(capacity, 0)

	return &Sample[T]{
		items: make([]T, 0, min(capacity, initialAlloc)),
		rng:   hashutil.NewStream(seed),
		size:  capacity,
	}
}

// initialAlloc bounds the up-front allocation for large reservoirs that may
// never fill.
const initialAlloc = 64

// Offer presents item to the reservoir.
func (s *Sample[T]) Offer(item T) {
	s.seen++

	if s.size == 0 {
		return
	}

	if len(s.items) < s.size {
		s.items = append(s.items, item)

		return
	}

	if j := s.rng.Intn(s.seen); j < uint64(s.size) {
		s.items[j] = item
	}
}

// Items returns the retained items. The slice is owned by the reservoir.
func (s *Sample[T]) Items() []T {
	return s.items
}

// Seen returns the number of items offered so far.
func (s *Sample[T]) Seen() uint64 {
	return s.seen
}

// Complete reports whether every offered item is still retained.
func (s *Sample[T]) Complete() bool {
	return s.seen == uint64(len(s.items))
}

// Cap returns the reservoir capacity.
func (s *Sample[T]) Cap() int {
	return s.size
}
