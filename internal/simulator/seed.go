package simulator

import (
	"math/rand"
	"time"
)

// SeedPolicy decides where a batch's base seed comes from
type SeedPolicy string

const (
	// SeedFixed uses the configured base seed
	SeedFixed SeedPolicy = "fixed"
	// SeedRandom draws a base seed from the wall clock; it is still recorded
	SeedRandom SeedPolicy = "random"
)

// ResolveBaseSeed applies the policy and returns the seed to record
func ResolveBaseSeed(policy SeedPolicy, configured int64) int64 {
	if policy == SeedRandom {
		return time.Now().UnixNano()
	}
	return configured
}

// DeriveSeed mixes a base seed and a trial index into an independent trial seed
// (splitmix64 finalizer), so any trial can be replayed from (base, index).
func DeriveSeed(base int64, index int) int64 {
	z := uint64(base) + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}

// NewRand returns a private RNG stream for one trial
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
