package replay

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

// SeedFor derives the flavor seed of a spin from its id, falling back to its timestamp.
// Every client computes the same seed for the same record.
func SeedFor(rec types.SpinRecord) uint64 {
	h := fnv.New64a()
	if rec.SpinID != "" {
		_, _ = h.Write([]byte(rec.SpinID))
	} else {
		_, _ = h.Write([]byte(strconv.FormatInt(rec.TS, 10)))
	}
	return h.Sum64()
}

// NewRand returns the deterministic flavor RNG of a spin.
func NewRand(rec types.SpinRecord) *rand.Rand {
	seed := SeedFor(rec)
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
