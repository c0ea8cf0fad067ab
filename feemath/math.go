// Package feemath implements the integer fixed-point arithmetic used to split
// fees: basis point ratios, locked fractions and pro-rata shares.
//
// Every product of two 64-bit magnitudes is formed in 128 bits and narrowed
// only after the division. A quotient that does not fit back into 64 bits is
// reported as ErrArithmeticOverflow, never wrapped or truncated.
package feemath

import (
	"fmt"
	"math/bits"
)

// BpsDenominator is the basis point scale: 10000 bps == 100%.
const BpsDenominator uint64 = 10_000

// MulDiv returns floor(a * b / c) using a 128-bit intermediate product.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	hi, lo := bits.Mul64(a, b)
	// bits.Div64 panics when the quotient does not fit in 64 bits.
	if hi >= c {
		return 0, fmt.Errorf("%w: %d * %d / %d does not fit in 64 bits", ErrArithmeticOverflow, a, b, c)
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// CheckedAdd returns a + b or ErrArithmeticOverflow on carry.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

// CheckedSub returns a - b or ErrArithmeticOverflow when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticOverflow, a, b)
	}
	return diff, nil
}

// SaturatingSub returns a - b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// Sum adds values with overflow checking.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var err error
		if total, err = CheckedAdd(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ValidateBps checks that bps is within [0, 10000].
func ValidateBps(bps uint64) error {
	if bps > BpsDenominator {
		return fmt.Errorf("%w: %d", ErrInvalidBps, bps)
	}
	return nil
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount, bps uint64) (uint64, error) {
	if err := ValidateBps(bps); err != nil {
		return 0, err
	}
	return MulDiv(amount, bps, BpsDenominator)
}

// LockedFractionBps returns floor(locked * 10000 / baseline), the share of
// the baseline allocation that is still locked. The result may exceed 10000
// when more than the baseline is locked; callers clamp it with EligibleBps.
func LockedFractionBps(locked, baseline uint64) (uint64, error) {
	return MulDiv(locked, BpsDenominator, baseline)
}

// EligibleBps returns min(shareBps, lockedBps).
func EligibleBps(shareBps uint16, lockedBps uint64) uint64 {
	return min(uint64(shareBps), lockedBps)
}

// ProRataShare returns floor(weight * pool / totalWeight).
func ProRataShare(weight, pool, totalWeight uint64) (uint64, error) {
	return MulDiv(weight, pool, totalWeight)
}
