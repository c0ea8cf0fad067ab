package sol

import "errors"

var (
	// ErrAccountNotFound indicates an account the adapter depends on does not
	// exist on chain.
	ErrAccountNotFound = errors.New("sol: account not found")

	// ErrUnknownStream indicates no venue or treasury is registered for the
	// stream.
	ErrUnknownStream = errors.New("sol: unknown stream")

	// ErrNoBaseTreasury indicates a venue without the base token account
	// needed to detect base fee leaks.
	ErrNoBaseTreasury = errors.New("sol: venue has no base treasury")

	// ErrBatchTooLarge indicates more transfers than fit in one transaction.
	ErrBatchTooLarge = errors.New("sol: transfer batch too large")

	// ErrInvalidAmount indicates a token amount the node returned could not
	// be parsed.
	ErrInvalidAmount = errors.New("sol: invalid token amount")

	// ErrTransactionFailed indicates a submitted transaction was executed
	// with an error.
	ErrTransactionFailed = errors.New("sol: transaction failed")

	// ErrNotConfirmed indicates a submitted transaction did not reach
	// confirmed commitment in time.
	ErrNotConfirmed = errors.New("sol: transaction not confirmed")
)
