package network

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOracle struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
	calls    map[solana.PublicKey]int
	inFlight atomic.Int32
	peak     atomic.Int32
	err      error
}

func newCountingOracle(balances map[solana.PublicKey]uint64) *countingOracle {
	return &countingOracle{balances: balances, calls: make(map[solana.PublicKey]int)}
}

func (o *countingOracle) LockedBalanceOf(_ context.Context, id solana.PublicKey) (uint64, error) {
	n := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[id]++
	if o.err != nil {
		return 0, o.err
	}
	return o.balances[id], nil
}

func keys(n int) []solana.PublicKey {
	out := make([]solana.PublicKey, n)
	for i := range out {
		out[i] = solana.NewWallet().PublicKey()
	}
	return out
}

func TestCachedOracle_PrefetchTotal(t *testing.T) {
	ids := keys(20)
	balances := make(map[solana.PublicKey]uint64)
	var want uint64
	for i, id := range ids {
		balances[id] = uint64(i * 1_000)
		want += uint64(i * 1_000)
	}
	oracle := newCountingOracle(balances)
	c := NewCachedOracle(oracle, 4)
	stream := solana.NewWallet().PublicKey()

	total, err := c.Prefetch(context.Background(), stream, 100, ids)
	require.NoError(t, err)
	assert.Equal(t, want, total)
	assert.LessOrEqual(t, oracle.peak.Load(), int32(4))

	// Cached for the rest of the epoch.
	v, err := c.LockedBalance(context.Background(), stream, 100, ids[3])
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000), v)
	assert.Equal(t, 1, oracle.calls[ids[3]])

	total, err = c.Prefetch(context.Background(), stream, 100, ids)
	require.NoError(t, err)
	assert.Equal(t, want, total)
	assert.Equal(t, 1, oracle.calls[ids[0]])
}

func TestCachedOracle_NewEpochRefetches(t *testing.T) {
	id := solana.NewWallet().PublicKey()
	oracle := newCountingOracle(map[solana.PublicKey]uint64{id: 5})
	c := NewCachedOracle(oracle, 0)
	stream := solana.NewWallet().PublicKey()

	_, err := c.LockedBalance(context.Background(), stream, 1, id)
	require.NoError(t, err)

	oracle.mu.Lock()
	oracle.balances[id] = 9
	oracle.mu.Unlock()

	v, err := c.LockedBalance(context.Background(), stream, 1, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	v, err = c.LockedBalance(context.Background(), stream, 2, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v)

	c.Forget(stream)
	_, err = c.LockedBalance(context.Background(), stream, 2, id)
	require.NoError(t, err)
	assert.Equal(t, 3, oracle.calls[id])
}

func TestCachedOracle_TotalOverflow(t *testing.T) {
	ids := keys(2)
	oracle := newCountingOracle(map[solana.PublicKey]uint64{ids[0]: math.MaxUint64, ids[1]: 1})
	c := NewCachedOracle(oracle, 2)

	_, err := c.Prefetch(context.Background(), solana.PublicKey{}, 0, ids)
	assert.ErrorIs(t, err, ErrInvalidOracleData)
}

func TestCachedOracle_PropagatesErrors(t *testing.T) {
	oracle := newCountingOracle(nil)
	oracle.err = ErrInvalidOracleData
	c := NewCachedOracle(oracle, 2)

	_, err := c.Prefetch(context.Background(), solana.PublicKey{}, 0, keys(3))
	assert.ErrorIs(t, err, ErrInvalidOracleData)

	boom := errors.New("boom")
	oracle.err = boom
	_, err = c.LockedBalance(context.Background(), solana.PublicKey{}, 0, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, boom)
}

func TestCachedOracle_LockedBalanceOfPassesThrough(t *testing.T) {
	id := solana.NewWallet().PublicKey()
	inner := newCountingOracle(map[solana.PublicKey]uint64{id: 40})
	var oracle LockedBalanceOracle = NewCachedOracle(inner, 0)

	for i := 0; i < 2; i++ {
		v, err := oracle.LockedBalanceOf(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), v)
	}
	assert.Equal(t, 2, inner.calls[id], "direct lookups bypass the epoch cache")
}
