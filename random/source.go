// Package random provides seeded, per-simulation random sources.
//
// Every game gets its own deterministic ChaCha stream keyed by an int64 seed,
// so repeated simulations with the same seed reproduce identical results and
// concurrent games never share generator state.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	"lukechampine.com/frand"
)

const (
	bufferSize = 1024
	rounds     = 12
)

// NewSource returns a deterministic generator keyed by seed. The result is
// not safe for concurrent use; create one per game.
func NewSource(seed int64) *frand.RNG {
	return frand.NewCustom(expand(seed), bufferSize, rounds)
}

// Derive returns the seed for the n-th game of a batch started from base.
// Derived seeds depend only on (base, n), never on which worker runs the game.
func Derive(base int64, n int) int64 {
	return int64(splitmix64(uint64(base) + uint64(n)*0x9e3779b97f4a7c15))
}

// NewSeed generates a random base seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// expand stretches a 64-bit seed into the 32-byte key frand requires.
func expand(seed int64) []byte {
	key := make([]byte, 32)
	state := uint64(seed)
	for i := 0; i < 4; i++ {
		state += 0x9e3779b97f4a7c15
		binary.LittleEndian.PutUint64(key[i*8:], splitmix64(state))
	}
	return key
}

func splitmix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
