package sol

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/network"
)

// ClaimFunc claims the accrued fees of a position into the stream's
// treasury token accounts. It is venue specific.
type ClaimFunc func(ctx context.Context) error

// Venue describes where a stream's fees accrue and where they land.
type Venue struct {
	Pool          guard.PoolConfig
	QuoteTreasury solana.PublicKey // quote token account
	BaseTreasury  solana.PublicKey // base token account watched for leaks; required
	Claim         ClaimFunc
}

// TreasuryFeeSource implements network.FeeSource by measuring the treasury
// token accounts around the venue claim.
type TreasuryFeeSource struct {
	rpc RPC

	mu     sync.RWMutex
	venues map[solana.PublicKey]Venue
}

var _ network.FeeSource = (*TreasuryFeeSource)(nil)

// NewTreasuryFeeSource creates an empty fee source.
func NewTreasuryFeeSource(client RPC) *TreasuryFeeSource {
	return &TreasuryFeeSource{rpc: client, venues: make(map[solana.PublicKey]Venue)}
}

// Register attaches a venue to stream.
func (s *TreasuryFeeSource) Register(stream solana.PublicKey, v Venue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[stream] = v
}

func (s *TreasuryFeeSource) venue(stream solana.PublicKey) (Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[stream]
	if !ok {
		return Venue{}, fmt.Errorf("%w: %s", ErrUnknownStream, stream)
	}
	if v.BaseTreasury.IsZero() {
		return Venue{}, fmt.Errorf("%w: %s", ErrNoBaseTreasury, stream)
	}
	return v, nil
}

// PoolConfig implements network.FeeSource.
func (s *TreasuryFeeSource) PoolConfig(_ context.Context, stream solana.PublicKey) (*guard.PoolConfig, error) {
	v, err := s.venue(stream)
	if err != nil {
		return nil, err
	}
	p := v.Pool
	return &p, nil
}

// ClaimFees implements network.FeeSource. The claim is the balance change of
// both treasury accounts across the venue claim.
func (s *TreasuryFeeSource) ClaimFees(ctx context.Context, stream solana.PublicKey) (*guard.Claim, error) {
	v, err := s.venue(stream)
	if err != nil {
		return nil, err
	}
	before, err := s.balances(ctx, v)
	if err != nil {
		return nil, err
	}
	if v.Claim != nil {
		if err := v.Claim(ctx); err != nil {
			return nil, fmt.Errorf("sol: claim position fees: %w", err)
		}
	}
	after, err := s.balances(ctx, v)
	if err != nil {
		return nil, err
	}
	c := guard.ClaimFromBalances(before, after)
	return &c, nil
}

// TreasuryBalance implements network.FeeSource.
func (s *TreasuryFeeSource) TreasuryBalance(ctx context.Context, stream solana.PublicKey) (uint64, error) {
	v, err := s.venue(stream)
	if err != nil {
		return 0, err
	}
	return tokenBalance(ctx, s.rpc, v.QuoteTreasury)
}

func (s *TreasuryFeeSource) balances(ctx context.Context, v Venue) (guard.Balances, error) {
	quote, err := tokenBalance(ctx, s.rpc, v.QuoteTreasury)
	if err != nil {
		return guard.Balances{}, err
	}
	base, err := tokenBalance(ctx, s.rpc, v.BaseTreasury)
	if err != nil {
		return guard.Balances{}, err
	}
	return guard.Balances{Quote: quote, Base: base}, nil
}
