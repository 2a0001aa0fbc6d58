// Package safeconv provides integer conversions that cannot silently wrap around.
package safeconv

import "math"

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// ClampIntToUint32 converts int to uint32, saturating at the type bounds.
// Negative values become zero.
func ClampIntToUint32(v int) uint32 {
	switch {
	case v < 0:
		return 0
	case uint64(v) > uint64(MaxUint32):
		return MaxUint32
	default:
		return uint32(v)
	}
}
