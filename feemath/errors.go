package feemath

import "errors"

var (
	// ErrArithmeticOverflow indicates a widened intermediate could not be
	// narrowed back into 64 bits, or a division had a zero divisor.
	ErrArithmeticOverflow = errors.New("feemath: arithmetic overflow")

	// ErrInvalidBps indicates a basis point value above 10000.
	ErrInvalidBps = errors.New("feemath: basis points exceed 10000")
)
