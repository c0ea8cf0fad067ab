package network

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/guard"
)

// MockFeeSource is a test double for FeeSource.
// All function fields must be set before the corresponding method is called.
type MockFeeSource struct {
	PoolConfigFn      func(ctx context.Context, stream solana.PublicKey) (*guard.PoolConfig, error)
	ClaimFeesFn       func(ctx context.Context, stream solana.PublicKey) (*guard.Claim, error)
	TreasuryBalanceFn func(ctx context.Context, stream solana.PublicKey) (uint64, error)
}

func (m *MockFeeSource) PoolConfig(ctx context.Context, stream solana.PublicKey) (*guard.PoolConfig, error) {
	return m.PoolConfigFn(ctx, stream)
}
func (m *MockFeeSource) ClaimFees(ctx context.Context, stream solana.PublicKey) (*guard.Claim, error) {
	return m.ClaimFeesFn(ctx, stream)
}
func (m *MockFeeSource) TreasuryBalance(ctx context.Context, stream solana.PublicKey) (uint64, error) {
	return m.TreasuryBalanceFn(ctx, stream)
}

// MockOracle is a test double for LockedBalanceOracle.
type MockOracle struct {
	LockedBalanceOfFn func(ctx context.Context, id solana.PublicKey) (uint64, error)
}

func (m *MockOracle) LockedBalanceOf(ctx context.Context, id solana.PublicKey) (uint64, error) {
	return m.LockedBalanceOfFn(ctx, id)
}

// MockExecutor is a test double for PayoutExecutor.
type MockExecutor struct {
	TransferFn func(ctx context.Context, stream solana.PublicKey, transfers []Transfer) (string, error)
}

func (m *MockExecutor) Transfer(ctx context.Context, stream solana.PublicKey, transfers []Transfer) (string, error) {
	return m.TransferFn(ctx, stream, transfers)
}

// MockRoster is a test double for Roster.
type MockRoster struct {
	StakeholdersFn func(ctx context.Context, stream solana.PublicKey) ([]Stakeholder, error)
}

func (m *MockRoster) Stakeholders(ctx context.Context, stream solana.PublicKey) ([]Stakeholder, error) {
	return m.StakeholdersFn(ctx, stream)
}
