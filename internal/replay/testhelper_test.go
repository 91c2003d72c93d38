package replay

import (
	"fmt"
	"time"

	"github.com/ichi0g0y/retro-wheel/internal/types"
)

var base = time.UnixMilli(1_700_000_000_000)

func fullSample() types.Sample {
	var s types.Sample
	for i := range s {
		item := types.NewGameItem(types.Game{ID: fmt.Sprintf("g%d", i), Title: fmt.Sprintf("Game %d", i)}, "PlayStation")
		s[i] = &item
	}
	return s
}

func spinAt(ts int64, durationMs int) *types.SpinRecord {
	sample := fullSample()
	return &types.SpinRecord{
		TS:         ts,
		SpinID:     fmt.Sprintf("spin-%d", ts),
		Mode:       types.ModeGame,
		Sample:     sample,
		TargetIdx:  5,
		DurationMs: durationMs,
		Turns:      6,
		Winner:     sample[5],
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
