// Package network defines the ports through which the distribution engine
// reaches the outside world: the fee venue, the vesting system, the token
// program and the stakeholder roster.
package network

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/guard"
)

// FeeSource is the market venue holding the fee position of a stream, and
// the treasury that receives its claimed fees.
type FeeSource interface {
	// PoolConfig returns the pool the fee position belongs to.
	PoolConfig(ctx context.Context, stream solana.PublicKey) (*guard.PoolConfig, error)

	// ClaimFees claims accrued fees into the stream's treasury and reports
	// the amounts received in each denomination. It is called at most once
	// per epoch.
	ClaimFees(ctx context.Context, stream solana.PublicKey) (*guard.Claim, error)

	// TreasuryBalance returns the quote balance of the stream's treasury.
	TreasuryBalance(ctx context.Context, stream solana.PublicKey) (uint64, error)
}

// LockedBalanceOracle reports how many tokens a stakeholder still has locked
// in the vesting system.
type LockedBalanceOracle interface {
	LockedBalanceOf(ctx context.Context, id solana.PublicKey) (uint64, error)
}

// PayoutExecutor moves quote tokens out of a stream's treasury.
type PayoutExecutor interface {
	// Transfer executes all transfers as one atomic batch and returns its
	// signature. Either every transfer lands or none does.
	Transfer(ctx context.Context, stream solana.PublicKey, transfers []Transfer) (string, error)
}

// Roster lists the stakeholders of a stream in a stable order.
type Roster interface {
	Stakeholders(ctx context.Context, stream solana.PublicKey) ([]Stakeholder, error)
}

// Stakeholder identifies one investor of a stream.
type Stakeholder struct {
	// ID is the vesting account that holds the investor's locked tokens.
	ID solana.PublicKey `json:"id"`
	// Destination is the investor's quote token account.
	Destination solana.PublicKey `json:"destination"`
}

// Transfer is a single quote token payout.
type Transfer struct {
	Destination solana.PublicKey
	Amount      uint64
	// Stakeholder is the paid investor, or the zero key for the creator.
	Stakeholder solana.PublicKey
}
