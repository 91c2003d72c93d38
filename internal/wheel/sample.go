package wheel

import (
	crand "crypto/rand"
	"errors"
	"math/big"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

var errInvalidRange = errors.New("invalid random range")

// randomInt returns a uniform int in [0, max). Replaced in tests.
var randomInt = secureRandomInt

func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidRange
	}
	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// DrawSample fills the 16 wheel slots from the pool without replacement,
// refilling from the full pool whenever the working copy runs out.
// An empty pool yields 16 empty slots.
func DrawSample(pool []types.PoolItem) (types.Sample, error) {
	var sample types.Sample
	if len(pool) == 0 {
		return sample, nil
	}

	bag := make([]int, 0, len(pool))
	for i := 0; i < types.SampleSize; i++ {
		if len(bag) == 0 {
			for j := range pool {
				bag = append(bag, j)
			}
		}
		pick, err := randomInt(len(bag))
		if err != nil {
			return types.Sample{}, err
		}
		item := pool[bag[pick]]
		sample[i] = &item

		last := len(bag) - 1
		bag[pick] = bag[last]
		bag = bag[:last]
	}

	return sample, nil
}
