package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/feerouter-go/feemath"
)

// DefaultPrefetchConcurrency bounds the number of concurrent oracle lookups
// issued by Prefetch.
const DefaultPrefetchConcurrency = 8

// CachedOracle memoizes locked balances for the duration of one epoch of a
// stream, so that the total fixed on page 0 and the per-page shares read the
// same values.
type CachedOracle struct {
	oracle LockedBalanceOracle
	limit  int

	mu     sync.Mutex
	scopes map[solana.PublicKey]*oracleScope
}

var _ LockedBalanceOracle = (*CachedOracle)(nil)

type oracleScope struct {
	epochStart int64
	balances   map[solana.PublicKey]uint64
}

// NewCachedOracle wraps oracle. concurrency <= 0 selects
// DefaultPrefetchConcurrency.
func NewCachedOracle(oracle LockedBalanceOracle, concurrency int) *CachedOracle {
	if concurrency <= 0 {
		concurrency = DefaultPrefetchConcurrency
	}
	return &CachedOracle{
		oracle: oracle,
		limit:  concurrency,
		scopes: make(map[solana.PublicKey]*oracleScope),
	}
}

// scope returns the cache of stream for the epoch starting at epochStart,
// dropping values cached for any earlier epoch. Caller holds mu.
func (c *CachedOracle) scope(stream solana.PublicKey, epochStart int64) *oracleScope {
	s, ok := c.scopes[stream]
	if !ok || s.epochStart != epochStart {
		s = &oracleScope{epochStart: epochStart, balances: make(map[solana.PublicKey]uint64)}
		c.scopes[stream] = s
	}
	return s
}

// Prefetch loads the locked balances of ids concurrently and returns their
// sum. Balances already cached for this epoch are not fetched again.
func (c *CachedOracle) Prefetch(ctx context.Context, stream solana.PublicKey, epochStart int64, ids []solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	s := c.scope(stream, epochStart)
	var missing []solana.PublicKey
	for _, id := range ids {
		if _, ok := s.balances[id]; !ok {
			missing = append(missing, id)
		}
	}
	c.mu.Unlock()

	fetched := make([]uint64, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, id := range missing {
		g.Go(func() error {
			v, err := c.oracle.LockedBalanceOf(gctx, id)
			if err != nil {
				return fmt.Errorf("locked balance of %s: %w", id, err)
			}
			fetched[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s = c.scope(stream, epochStart)
	for i, id := range missing {
		s.balances[id] = fetched[i]
	}

	var total uint64
	for _, id := range ids {
		var err error
		if total, err = feemath.CheckedAdd(total, s.balances[id]); err != nil {
			return 0, fmt.Errorf("%w: locked total: %w", ErrInvalidOracleData, err)
		}
	}
	return total, nil
}

// LockedBalance returns the cached balance of id, fetching it on a miss.
func (c *CachedOracle) LockedBalance(ctx context.Context, stream solana.PublicKey, epochStart int64, id solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	if v, ok := c.scope(stream, epochStart).balances[id]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.oracle.LockedBalanceOf(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("locked balance of %s: %w", id, err)
	}

	c.mu.Lock()
	c.scope(stream, epochStart).balances[id] = v
	c.mu.Unlock()
	return v, nil
}

// LockedBalanceOf implements LockedBalanceOracle by asking the wrapped
// oracle directly. It neither reads nor fills the cache.
func (c *CachedOracle) LockedBalanceOf(ctx context.Context, id solana.PublicKey) (uint64, error) {
	return c.oracle.LockedBalanceOf(ctx, id)
}

// Forget drops every cached balance of stream.
func (c *CachedOracle) Forget(stream solana.PublicKey) {
	c.mu.Lock()
	delete(c.scopes, stream)
	c.mu.Unlock()
}
