// Package hashutil provides the hashing and pseudo-random primitives shared by
// the sketches and samplers in pkg/alg.
//
// All mixing uses the splitmix64 finalizer by Vigna (2014), which gives
// full-avalanche output across all 64 bits.
package hashutil

import "hash/fnv"

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	// BaseSeed is the starting seed for deterministic seed generation.
	BaseSeed = 0x517cc1b727220a95

	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// splitmix64Increment is the golden-ratio increment of the splitmix64 state.
	splitmix64Increment = 0x9e3779b97f4a7c15

	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// Mix64 applies the splitmix64 finalizer. It does not advance any state.
func Mix64(v uint64) uint64 {
	v ^= v >> MixShift1
	v *= MixMul1
	v ^= v >> MixShift2
	v *= MixMul2
	v ^= v >> MixShift3

	return v
}

// Splitmix64 advances state by the golden-ratio increment and mixes it.
func Splitmix64(state uint64) uint64 {
	return Mix64(state + splitmix64Increment)
}

// FNV64a computes a 64-bit FNV-1a hash of data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// String64 returns the mixed FNV-1a hash of s without converting it to a byte slice.
// It is the value hash used by every per-column sketch.
func String64(s string) uint64 {
	h := uint64(fnvOffset64)

	for i := range len(s) {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}

	return Mix64(h)
}

// Combine folds v into an accumulated hash. It is order-sensitive, so the same
// values in a different order produce a different result.
func Combine(acc, v uint64) uint64 {
	return Mix64(acc ^ (v + splitmix64Increment + (acc << 6) + (acc >> 2)))
}

// GenerateSeeds creates n deterministic seeds using the given advance function.
func GenerateSeeds(n int, advance func(uint64) uint64) []uint64 {
	seeds := make([]uint64, n)
	state := uint64(BaseSeed)

	for i := range n {
		state = advance(state)
		seeds[i] = state
	}

	return seeds
}

// Stream is a deterministic splitmix64 pseudo-random sequence.
// The zero value is ready to use and starts from BaseSeed.
type Stream struct {
	state   uint64
	started bool
}

// NewStream returns a Stream starting from seed.
func NewStream(seed uint64) *Stream {
	return &Stream{state: seed, started: true}
}

// Next returns the next 64-bit value of the sequence.
func (s *Stream) Next() uint64 {
	if !s.started {
		s.state = BaseSeed
		s.started = true
	}

	s.state += splitmix64Increment

	return Mix64(s.state)
}

// Intn returns a value in [0, n). n must be positive.
func (s *Stream) Intn(n uint64) uint64 {
	return s.Next() % n
}
