package engine

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource abstract

type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

// crypto random : default generation method
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	// Read 53bit random => [0, 1)
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

// IntN uses rejection on a 64-bit draw so every value is equally likely.
func (cryptoRNG) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	bound := uint64(n)
	limit := ^uint64(0) - (^uint64(0) % bound)
	var buf [8]byte
	for {
		if _, err := cryptoRand.Read(buf[:]); err != nil {
			return rand.IntN(n)
		}
		u := binary.BigEndian.Uint64(buf[:])
		if u < limit {
			return int(u % bound)
		}
	}
}

func DefaultRNG() RandomSource { return cryptoRNG{} }

// fast, not cryptographically strong
type fastRNG struct{}

func (fastRNG) Float64() float64 { return rand.Float64() }

func (fastRNG) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.IntN(n)
}

func FastRNG() RandomSource { return fastRNG{} }

// Replicable RNG (tests, calibration runs)
type seededRNG struct{ r *rand.Rand }

func NewSeededRNG(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

func (s *seededRNG) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	return s.r.IntN(n)
}

// Locked serializes a source that is not safe for concurrent use.
func Locked(r RandomSource) RandomSource { return &lockedRNG{r: r} }

type lockedRNG struct {
	mu sync.Mutex
	r  RandomSource
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRNG) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Entropy names accepted by NewRNG.
const (
	EntropyCrypto = "crypto"
	EntropyFast   = "fast"
	EntropySeeded = "seeded"
)

// NewRNG builds a source by name; unknown or empty names get the crypto
// source. The seeded source is wrapped with Locked since variants share it.
func NewRNG(kind string, seed uint64) RandomSource {
	switch kind {
	case EntropyFast:
		return FastRNG()
	case EntropySeeded:
		return Locked(NewSeededRNG(seed))
	default:
		return DefaultRNG()
	}
}

// Shuffle permutes xs in place (Fisher-Yates).
func Shuffle[T any](rng RandomSource, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Pick returns a uniformly chosen element of xs; xs must not be empty.
func Pick[T any](rng RandomSource, xs []T) T {
	return xs[rng.IntN(len(xs))]
}
