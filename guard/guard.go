// Package guard enforces the quote-only invariant: value routed to
// stakeholders must originate exclusively from the quote token. Both checks
// fail closed and run before any payout is executed.
package guard

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CollectFeeMode mirrors the venue's fee collection setting for a pool.
type CollectFeeMode uint8

const (
	// CollectFeeBothTokens accrues fees in both pool tokens.
	CollectFeeBothTokens CollectFeeMode = 0
	// CollectFeeOnlyB accrues fees in token B only.
	CollectFeeOnlyB CollectFeeMode = 1
)

// PoolConfig is the part of the fee-bearing pool relevant to the
// denomination of accrued fees.
type PoolConfig struct {
	TokenAMint     solana.PublicKey
	TokenBMint     solana.PublicKey
	QuoteMint      solana.PublicKey
	CollectFeeMode CollectFeeMode
}

// Balances is a snapshot of the treasury's base and quote token balances.
type Balances struct {
	Base  uint64
	Quote uint64
}

// Claim is the observed outcome of one fee claim.
type Claim struct {
	Quote uint64 // quote tokens received
	Base  uint64 // base tokens received; anything non-zero is a violation
}

// ClaimFromBalances derives a Claim from treasury balances taken immediately
// before and after the venue claim. A decreasing balance counts as zero
// received.
func ClaimFromBalances(before, after Balances) Claim {
	var c Claim
	if after.Quote > before.Quote {
		c.Quote = after.Quote - before.Quote
	}
	if after.Base > before.Base {
		c.Base = after.Base - before.Base
	}
	return c
}

// ValidatePool checks that the pool can only accrue quote fees: the quote mint
// must be token B, distinct from token A, and fees must be collected in token
// B only.
func ValidatePool(cfg PoolConfig) error {
	if cfg.QuoteMint.IsZero() || !cfg.QuoteMint.Equals(cfg.TokenBMint) {
		return fmt.Errorf("%w: quote %s, token B %s", ErrInvalidQuoteMint, cfg.QuoteMint, cfg.TokenBMint)
	}
	if cfg.TokenAMint.Equals(cfg.QuoteMint) {
		return fmt.Errorf("%w: token A equals quote mint %s", ErrInvalidQuoteMint, cfg.QuoteMint)
	}
	if cfg.CollectFeeMode != CollectFeeOnlyB {
		return fmt.Errorf("%w: collect fee mode %d", ErrBaseFeeDetected, cfg.CollectFeeMode)
	}
	return nil
}

// ValidateClaim checks a completed claim. Base token movement is checked first
// so that it is reported even when no quote fees arrived.
func ValidateClaim(c Claim) error {
	if c.Base != 0 {
		return fmt.Errorf("%w: %d base units received", ErrDisallowedDenominationDetected, c.Base)
	}
	if c.Quote == 0 {
		return ErrNoFeesAvailable
	}
	return nil
}
