package receipts

import "errors"

var (
	// ErrNotFound indicates no receipt exists for the given key.
	ErrNotFound = errors.New("receipts: receipt not found")

	// ErrInvalidKey indicates the key is not exactly 32 bytes.
	ErrInvalidKey = errors.New("receipts: key must be 32 bytes")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("receipts: I/O failure")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("receipts: invalid base directory")

	// ErrCorruptReceipt indicates a stored receipt failed to decode.
	ErrCorruptReceipt = errors.New("receipts: corrupt receipt")

	// ErrReceiptTooLarge indicates a stored receipt inflates beyond MaxReceiptSize.
	ErrReceiptTooLarge = errors.New("receipts: decompressed receipt exceeds maximum size")
)
