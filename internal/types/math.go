package types

import "math/bits"

// SafeAdd returns a+b, or ErrOverflow when the sum exceeds uint64.
func SafeAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SafeMul returns a*b, or ErrOverflow when the product exceeds uint64.
func SafeMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// SaturatingSub returns a-b, floored at zero.
func SaturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// AbsDiff returns |a-b| without wrapping.
func AbsDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Isqrt returns the largest integer whose square does not exceed v.
func Isqrt(v uint64) uint64 {
	if v == 0 {
		return 0
	}
	lo, hi := uint64(1), uint64(1)<<32
	if hi > v {
		hi = v
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if mid <= v/mid {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
