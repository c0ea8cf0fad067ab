package crank

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/feerouter-go/distribution"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/ledger"
	"github.com/bitfsorg/feerouter-go/logger"
	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/receipts"
	"github.com/bitfsorg/feerouter-go/retry"
)

const t0 int64 = 1_700_000_000

type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	store  *ledger.MemStore
	engine *distribution.Engine
	stream Stream

	mu           sync.Mutex
	treasury     uint64
	claims       int
	claimQuote   uint64
	claimBase    uint64
	transferErrs []error

	crank  *Crank
	failed []error
}

func newHarness(t *testing.T, holders, pageSize int) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		clock:      clockwork.NewFakeClockAt(time.Unix(t0, 0)),
		store:      ledger.NewMemStore(),
		claimQuote: 1_000_000,
	}
	quote := solana.NewWallet().PublicKey()
	pool := guard.PoolConfig{
		TokenAMint:     solana.NewWallet().PublicKey(),
		TokenBMint:     quote,
		QuoteMint:      quote,
		CollectFeeMode: guard.CollectFeeOnlyB,
	}
	streamID := solana.NewWallet().PublicKey()
	var stakeholders []network.Stakeholder
	for i := 0; i < holders; i++ {
		stakeholders = append(stakeholders, network.Stakeholder{
			ID:          solana.NewWallet().PublicKey(),
			Destination: solana.NewWallet().PublicKey(),
		})
	}
	roster := network.StaticRoster{streamID: stakeholders}
	require.NoError(t, h.store.InitGlobalConfig(context.Background(), &ledger.GlobalConfig{Creator: solana.NewWallet().PublicKey()}))

	fees := &network.MockFeeSource{
		PoolConfigFn: func(context.Context, solana.PublicKey) (*guard.PoolConfig, error) {
			p := pool
			return &p, nil
		},
		ClaimFeesFn: func(context.Context, solana.PublicKey) (*guard.Claim, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.claims++
			h.treasury += h.claimQuote
			return &guard.Claim{Quote: h.claimQuote, Base: h.claimBase}, nil
		},
		TreasuryBalanceFn: func(context.Context, solana.PublicKey) (uint64, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.treasury, nil
		},
	}
	oracle := &network.MockOracle{
		LockedBalanceOfFn: func(context.Context, solana.PublicKey) (uint64, error) { return 1_000_000, nil },
	}
	executor := &network.MockExecutor{
		TransferFn: func(_ context.Context, _ solana.PublicKey, transfers []network.Transfer) (string, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if len(h.transferErrs) > 0 {
				err := h.transferErrs[0]
				h.transferErrs = h.transferErrs[1:]
				return "", err
			}
			for _, tr := range transfers {
				h.treasury -= tr.Amount
			}
			return "sig", nil
		},
	}

	h.engine = distribution.NewEngine(h.store, fees, oracle, executor, roster,
		distribution.WithClock(h.clock),
		distribution.WithLogger(logger.Discard()),
		distribution.WithPageSize(pageSize),
	)
	h.stream = Stream{
		Name:   "alpha",
		ID:     streamID,
		Policy: ledger.Policy{InvestorFeeShareBps: 8000, Y0Baseline: uint64(holders) * 1_000_000},
	}

	c, err := New(Config{
		Logger: logger.Discard(),
		Clock:  h.clock,
		Engine: h.engine,
		Store:  h.store,
		Roster: roster,
		Retry: retry.Config{
			MaxAttempts: 3,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  time.Millisecond,
			Clock:       clockwork.NewRealClock(),
		},
		PollInterval: 48 * time.Hour,
		OnError:      func(_ Stream, err error) { h.failed = append(h.failed, err) },
	})
	require.NoError(t, err)
	h.crank = c
	return h
}

// ---------------------------------------------------------------------------
// RunEpoch
// ---------------------------------------------------------------------------

func TestRunEpoch_CompletesAllPages(t *testing.T) {
	h := newHarness(t, 5, 2)

	sum, err := h.crank.RunEpoch(context.Background(), h.stream)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Pages)
	assert.True(t, sum.Complete)
	assert.Equal(t, uint64(800_000), sum.InvestorTotal)
	assert.Equal(t, uint64(200_000), sum.CreatorAmount)
	assert.Equal(t, uint64(0), h.treasury, "everything claimed is paid out")

	st, err := h.store.Load(context.Background(), h.stream.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PhaseComplete, st.Progress.Phase())
}

func TestRunEpoch_NotDueUntilGateOpens(t *testing.T) {
	h := newHarness(t, 3, 2)
	ctx := context.Background()

	_, err := h.crank.RunEpoch(ctx, h.stream)
	require.NoError(t, err)

	_, err = h.crank.RunEpoch(ctx, h.stream)
	assert.ErrorIs(t, err, ErrNotDue)

	h.clock.Advance(24*time.Hour - time.Second)
	_, err = h.crank.RunEpoch(ctx, h.stream)
	assert.ErrorIs(t, err, ErrNotDue)

	h.clock.Advance(time.Second)
	sum, err := h.crank.RunEpoch(ctx, h.stream)
	require.NoError(t, err)
	assert.True(t, sum.Complete)
	assert.Equal(t, 2, h.claims)
}

func TestRunEpoch_ResumesFromCursor(t *testing.T) {
	h := newHarness(t, 5, 2)
	ctx := context.Background()

	batch, _, err := network.Page(mustRoster(t, h), 0, 2)
	require.NoError(t, err)
	_, err = h.engine.ProcessPage(ctx, distribution.PageRequest{
		Stream: h.stream.ID, PageIndex: 0, Policy: h.stream.Policy, Stakeholders: batch,
	})
	require.NoError(t, err)

	sum, err := h.crank.RunEpoch(ctx, h.stream)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Pages, "pages 1 and 2 only")
	assert.True(t, sum.Complete)
	assert.Equal(t, 1, h.claims)
}

func TestRunEpoch_RetriesTransientFailure(t *testing.T) {
	h := newHarness(t, 3, 2)
	h.transferErrs = []error{errors.New("rpc: 429 Too Many Requests")}

	sum, err := h.crank.RunEpoch(context.Background(), h.stream)
	require.NoError(t, err)
	assert.True(t, sum.Complete)
	assert.Equal(t, 2, h.claims, "the rolled back page 0 claimed once more on retry")
	assert.Equal(t, uint64(0), h.treasury, "the orphaned first claim is swept into the pool")
}

func TestRunEpoch_PermanentFailureNotRetried(t *testing.T) {
	h := newHarness(t, 3, 2)
	h.claimBase = 1

	_, err := h.crank.RunEpoch(context.Background(), h.stream)
	assert.ErrorIs(t, err, guard.ErrDisallowedDenominationDetected)
	assert.Equal(t, 1, h.claims)
}

// ---------------------------------------------------------------------------
// RunOnce / Run
// ---------------------------------------------------------------------------

func TestRunOnce_ReportsFailuresAndContinues(t *testing.T) {
	h := newHarness(t, 3, 2)
	bad := h.stream
	bad.Name = "bad"
	bad.Policy.Y0Baseline = 0

	sums := h.crank.RunOnce(context.Background(), []Stream{bad, h.stream})
	require.Len(t, h.failed, 1)
	assert.ErrorIs(t, h.failed[0], ledger.ErrInvalidPolicy)

	var completed []string
	for _, s := range sums {
		if s.Complete {
			completed = append(completed, s.Stream)
		}
	}
	assert.Equal(t, []string{"alpha"}, completed)

	// Nothing is due on the next pass.
	assert.Empty(t, h.crank.RunOnce(context.Background(), []Stream{h.stream}))
}

func TestRunOnce_NoFeesIsNotAFailure(t *testing.T) {
	h := newHarness(t, 2, 2)
	h.claimQuote = 0

	assert.Empty(t, h.crank.RunOnce(context.Background(), []Stream{h.stream}))
	assert.Empty(t, h.failed)
	assert.Equal(t, 1, h.claims)
}

func TestNextWake(t *testing.T) {
	h := newHarness(t, 1, 2)
	ctx := context.Background()

	assert.Equal(t, 48*time.Hour, h.crank.nextWake(ctx, []Stream{h.stream}), "fresh stream: poll interval")

	_, err := h.crank.RunEpoch(ctx, h.stream)
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	assert.Equal(t, 23*time.Hour, h.crank.nextWake(ctx, []Stream{h.stream}))
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, 2, 2)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.crank.Run(ctx, []Stream{h.stream}) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, h.clock.BlockUntilContext(waitCtx, 1))
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, h.claims)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Logger: logger.Discard()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func mustRoster(t *testing.T, h *harness) []network.Stakeholder {
	t.Helper()
	roster, err := h.crank.cfg.Roster.Stakeholders(context.Background(), h.stream.ID)
	require.NoError(t, err)
	return roster
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

type failingArchive struct{ receipts.Archive }

func (failingArchive) Put(receipts.Receipt) error { return errors.New("disk full") }

func TestRunEpoch_ArchivesEveryPage(t *testing.T) {
	h := newHarness(t, 5, 2)
	archive, err := receipts.NewFileArchive(t.TempDir())
	require.NoError(t, err)
	h.crank.cfg.Archive = archive

	_, err = h.crank.RunEpoch(context.Background(), h.stream)
	require.NoError(t, err)

	got, err := archive.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	var paid uint64
	for i, r := range got {
		assert.Equal(t, h.stream.ID, r.Stream)
		assert.Equal(t, uint32(i), r.PageIndex)
		assert.Equal(t, int64(t0), r.EpochStart)
		paid += r.InvestorTotal
	}
	assert.Equal(t, uint64(800_000), paid)
	assert.True(t, got[2].Complete)
	assert.Equal(t, uint64(200_000), got[2].CreatorAmount)
}

func TestRunEpoch_ArchiveFailureDoesNotStopEpoch(t *testing.T) {
	h := newHarness(t, 3, 2)
	h.crank.cfg.Archive = failingArchive{}

	sum, err := h.crank.RunEpoch(context.Background(), h.stream)
	require.NoError(t, err)
	assert.True(t, sum.Complete)
}
