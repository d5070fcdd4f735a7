package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return NewStream(seed, 0)
}

// NewStream creates a deterministic RNG for one of many independent streams
// sharing a base seed. Concurrent runs each take their own stream.
func NewStream(seed int64, stream uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), stream))}
}

// Bool returns a random boolean value.
func (r *RNG) Bool() bool {
	return r.r.IntN(2) == 1
}

// Uint8n returns a random uint8 in [0, n). n is widened so that 256 states
// can be drawn.
func (r *RNG) Uint8n(n int) uint8 {
	if n <= 0 {
		return 0
	}
	return uint8(r.r.IntN(n))
}

// FillUniform fills the buffer with values drawn uniformly from [0, n).
func FillUniform[T ~uint8](r *rand.Rand, buf []T, n int) {
	if n <= 0 {
		clear(buf)
		return
	}
	for i := range buf {
		buf[i] = T(r.IntN(n))
	}
}

// FillBinary fills the buffer with 0/1 values using the RNG.
func FillBinary(r *rand.Rand, buf []uint8) {
	FillUniform(r, buf, 2)
}

// Source exposes the underlying rand.Rand for advanced use.
func (r *RNG) Source() *rand.Rand { return r.r }
