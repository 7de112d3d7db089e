// Package wrap32 implements the bijective mapping between 64-bit absolute
// stream indices and 32-bit wire sequence numbers used throughout the TCP
// layer (wire sequence numbers wrap modulo 2^32, but the stack tracks byte
// offsets as uint64 internally).
package wrap32

import "math"

// Wrap32 is a 32-bit integer interpreted modulo 2^32.
type Wrap32 uint32

// Wrap returns zero_point + (n mod 2^32).
func Wrap(n uint64, zeroPoint Wrap32) Wrap32 {
	return zeroPoint + Wrap32(uint32(n))
}

// Add returns w advanced by a 64-bit offset, performed in wrapping 32-bit
// arithmetic.
func (w Wrap32) Add(n uint64) Wrap32 {
	return w + Wrap32(uint32(n))
}

// Unwrap returns the u64 x such that Wrap(x, zeroPoint) == w and |x -
// checkpoint| is minimized, breaking ties toward the smaller x.
//
// Candidates are built from the checkpoint's high 32 bits plus k*2^32, for
// k in {-1, 0, +1}, clamped so no candidate goes negative.
func (w Wrap32) Unwrap(zeroPoint Wrap32, checkpoint uint64) uint64 {
	const wrapRange = uint64(1) << 32

	offset := uint64(uint32(w) - uint32(zeroPoint))
	checkpointHigh := checkpoint &^ (wrapRange - 1)

	best := uint64(math.MaxUint64)
	bestDiff := uint64(math.MaxUint64)

	for _, k := range [3]int64{-1, 0, 1} {
		var base uint64
		if k < 0 {
			delta := wrapRange
			if delta > checkpointHigh {
				// Would underflow below zero; no valid candidate for this k.
				continue
			}
			base = checkpointHigh - delta
		} else {
			base = checkpointHigh + uint64(k)*wrapRange
		}
		candidate := base + offset

		diff := absDiff(candidate, checkpoint)
		if diff < bestDiff || (diff == bestDiff && candidate < best) {
			bestDiff = diff
			best = candidate
		}
	}

	return best
}

func absDiff(a, b uint64) uint64 {
	if a < b {
		return b - a
	}
	return a - b
}
