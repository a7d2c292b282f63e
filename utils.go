package reorder

import "math"

const HalfMaxUint16 = uint16(math.MaxUint16/2) + 1

// epochGreaterThan reports whether a is newer than b, allowing epochs to wrap around.
func epochGreaterThan(a, b uint16) bool {
	return ((a > b) && (a-b <= HalfMaxUint16)) || ((a < b) && (b-a > HalfMaxUint16))
}

// inWindow reports whether seq lies within [next, next+size). It does not overflow for windows that straddle
// math.MaxUint64.
func inWindow(seq, next uint64, size int) bool {
	return seq >= next && seq-next < uint64(size)
}
