package distribution

import "errors"

var (
	// ErrInvestorPoolExceeded indicates the shares of a page would push the
	// epoch's investor payouts past the pool fixed on page 0.
	ErrInvestorPoolExceeded = errors.New("distribution: investor pool exceeded")

	// ErrInvalidInvestorData indicates a submitted stakeholder batch that
	// does not match the roster page it claims to be.
	ErrInvalidInvestorData = errors.New("distribution: invalid investor data")

	// ErrPolicyMismatch indicates a request whose policy differs from the one
	// pinned to the stream.
	ErrPolicyMismatch = errors.New("distribution: policy mismatch")

	// ErrTreasuryShortfall indicates the treasury holds less than the pool
	// reserved for the epoch.
	ErrTreasuryShortfall = errors.New("distribution: treasury shortfall")
)
