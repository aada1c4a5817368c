package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b) for non-negative integers. b == 0 yields 0.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ScaleU16 maps x in [0, 65535] linearly onto [0, span] with truncating
// division and 32-bit-safe intermediates.
func ScaleU16(x uint16, span int32) int32 {
	return int32((int64(x) * int64(span)) / 0xFFFF)
}
