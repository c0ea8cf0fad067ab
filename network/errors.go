package network

import "errors"

var (
	// ErrInvalidOracleData indicates the locked-balance source returned data
	// that cannot be interpreted, or balances whose total does not fit.
	ErrInvalidOracleData = errors.New("network: invalid oracle data")

	// ErrUnknownStream indicates no roster or adapter is registered for the
	// stream.
	ErrUnknownStream = errors.New("network: unknown stream")

	// ErrInvalidPageSize indicates a non-positive roster page size.
	ErrInvalidPageSize = errors.New("network: invalid page size")

	// ErrPageOutOfRange indicates a page index past the end of the roster.
	ErrPageOutOfRange = errors.New("network: page out of range")

	// ErrMissingEndpoint indicates no RPC endpoint could be resolved.
	ErrMissingEndpoint = errors.New("network: missing RPC endpoint")
)
