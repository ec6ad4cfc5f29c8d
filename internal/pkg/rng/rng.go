// Package rng provides per-wager random sources.
package rng

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// New returns a ChaCha8 generator seeded from the operating system CSPRNG.
// Every wager draws from its own generator; generators are never shared
// between goroutines.
func New() *rand.Rand {
	var seed [32]byte
	// crypto/rand.Read never fails on supported platforms
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// Seeded returns a deterministic generator for tests and replays.
func Seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
