// Package testutil holds deterministic fixtures shared by store-level tests:
// frame sequences and row builders with predictable row ids.
package testutil

import "github.com/roach88/strata/internal/types"

// FrameRange returns the frames from..to inclusive. An empty range yields nil.
func FrameRange(from, to types.TimeInt) []types.TimeInt {
	var out []types.TimeInt
	for f := from; f <= to; f++ {
		out = append(out, f)
	}
	return out
}

// Repeat returns n copies of frame f.
func Repeat(f types.TimeInt, n int) []types.TimeInt {
	if n <= 0 {
		return nil
	}
	out := make([]types.TimeInt, n)
	for i := range out {
		out[i] = f
	}
	return out
}

// Reversed returns a reversed copy of frames.
func Reversed(frames []types.TimeInt) []types.TimeInt {
	out := make([]types.TimeInt, len(frames))
	for i, f := range frames {
		out[len(frames)-1-i] = f
	}
	return out
}

// PathologicalSteps is the insertion sequence of the bucket topology
// regression: overlapping runs and duplicated frames that force splits at
// awkward positions. It inserts 67 rows in total.
func PathologicalSteps() [][]types.TimeInt {
	return [][]types.TimeInt{
		Repeat(1000, 10),
		FrameRange(970, 979),
		FrameRange(990, 999),
		FrameRange(980, 989),
		Repeat(1000, 7),
		FrameRange(1000, 1009),
		Repeat(975, 10),
	}
}
