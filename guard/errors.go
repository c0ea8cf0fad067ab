package guard

import "errors"

var (
	// ErrDisallowedDenominationDetected indicates the fee claim moved a non-zero
	// amount of the base (disallowed) token. Distribution must not proceed.
	ErrDisallowedDenominationDetected = errors.New("guard: base token fees detected during claim, distribution aborted")

	// ErrNoFeesAvailable indicates the claim yielded no quote tokens.
	ErrNoFeesAvailable = errors.New("guard: no fees available to claim")

	// ErrBaseFeeDetected indicates the pool configuration would accrue fees in
	// the base token.
	ErrBaseFeeDetected = errors.New("guard: pool configuration would accrue base token fees")

	// ErrInvalidQuoteMint indicates the pool token order does not place the
	// quote mint on side B.
	ErrInvalidQuoteMint = errors.New("guard: invalid quote mint, pool token order validation failed")
)
