package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bitfsorg/feerouter-go/epoch"
	"github.com/bitfsorg/feerouter-go/feemath"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/ledger"
	"github.com/bitfsorg/feerouter-go/metrics"
	"github.com/bitfsorg/feerouter-go/network"
)

// DefaultPageSize is the number of stakeholders per page.
const DefaultPageSize = 15

// PageRequest is one call to process the next page of a stream.
type PageRequest struct {
	Stream       solana.PublicKey
	PageIndex    uint32
	Policy       ledger.Policy
	Stakeholders []network.Stakeholder
	// Final terminates the epoch on this page even if roster pages remain.
	Final bool
}

// Engine processes distribution pages against a ledger store and the
// external ports.
type Engine struct {
	store    ledger.Store
	fees     network.FeeSource
	oracle   *network.CachedOracle
	executor network.PayoutExecutor
	roster   network.Roster

	sink     EventSink
	clock    clockwork.Clock
	log      *slog.Logger
	pageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for the epoch gate.
func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithEventSink sets where events are published.
func WithEventSink(s EventSink) Option { return func(e *Engine) { e.sink = s } }

// WithPageSize sets the number of stakeholders per page.
func WithPageSize(n int) Option { return func(e *Engine) { e.pageSize = n } }

// NewEngine wires an engine. The oracle is wrapped in an epoch-scoped cache.
func NewEngine(
	store ledger.Store,
	fees network.FeeSource,
	oracle network.LockedBalanceOracle,
	executor network.PayoutExecutor,
	roster network.Roster,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:    store,
		fees:     fees,
		executor: executor,
		roster:   roster,
		clock:    clockwork.NewRealClock(),
		log:      slog.Default(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = LogSink{Log: e.log}
	}
	cached, ok := oracle.(*network.CachedOracle)
	if !ok {
		cached = network.NewCachedOracle(oracle, 0)
	}
	e.oracle = cached
	return e
}

// PageSize returns the number of stakeholders per page.
func (e *Engine) PageSize() int { return e.pageSize }

// ProcessPage validates, computes and pays out one page of req.Stream. The
// payout batch runs inside the ledger transaction: on any error nothing is
// persisted and the caller may resubmit the same page.
func (e *Engine) ProcessPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	start := e.clock.Now()
	runID := uuid.NewString()
	log := e.log.With("stream", req.Stream, "page", req.PageIndex, "run_id", runID)

	res, events, err := e.processPage(ctx, log, req)
	metrics.PageDuration.Observe(e.clock.Since(start).Seconds())
	if err != nil {
		metrics.PagesProcessedTotal.WithLabelValues(errorStatus(err)).Inc()
		if errors.Is(err, guard.ErrDisallowedDenominationDetected) || errors.Is(err, guard.ErrBaseFeeDetected) {
			log.Error("quote-only violation, page aborted", "error", err)
		} else {
			log.Warn("page rejected", "error", err)
		}
		return nil, err
	}
	res.RunID = runID

	metrics.PagesProcessedTotal.WithLabelValues("ok").Inc()
	metrics.InvestorPaidTotal.Add(float64(res.InvestorTotal))
	metrics.CreatorPaidTotal.Add(float64(res.CreatorAmount))
	metrics.PayoutsSkippedTotal.Add(float64(len(res.Skipped)))
	if res.PageIndex == 0 {
		metrics.QuoteClaimedTotal.Add(float64(res.Progress.ClaimedQuote))
	}

	for _, ev := range events {
		if err := e.sink.Publish(ctx, ev); err != nil {
			log.Warn("publish event", "event", ev.EventName(), "error", err)
		}
	}
	log.Info("page processed",
		"payouts", len(res.Payouts),
		"skipped", len(res.Skipped),
		"investor_total", res.InvestorTotal,
		"creator_amount", res.CreatorAmount,
		"complete", res.Complete,
		"signature", res.Signature,
	)
	return res, nil
}

func (e *Engine) processPage(ctx context.Context, log *slog.Logger, req PageRequest) (*PageResult, []Event, error) {
	if err := req.Policy.Validate(); err != nil {
		return nil, nil, err
	}
	global, err := e.store.GlobalConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	roster, err := e.roster.Stakeholders(ctx, req.Stream)
	if err != nil {
		return nil, nil, fmt.Errorf("roster: %w", err)
	}

	var (
		res    *PageResult
		events []Event
	)
	err = e.store.Update(ctx, req.Stream, func(st *ledger.StreamState) error {
		if st.Policy != nil && !st.Policy.Equal(req.Policy) {
			return ErrPolicyMismatch
		}

		now := e.clock.Now().Unix()
		progress := st.Progress
		decision, err := epoch.BeginOrContinue(&progress, req.PageIndex, now)
		if err != nil {
			return err
		}
		if decision.Superseded {
			log.Warn("superseding unfinished epoch",
				"previous_start", decision.Previous.LastEpochStart,
				"page_cursor", decision.Previous.PageCursor,
				"rolled_over", decision.Previous.CarryOver)
			events = append(events, EpochSuperseded{
				Stream:        req.Stream,
				PreviousStart: decision.Previous.LastEpochStart,
				PageCursor:    decision.Previous.PageCursor,
				RolledOver:    decision.Previous.CarryOver,
				Timestamp:     now,
			})
		}

		expected, last, err := network.Page(roster, req.PageIndex, e.pageSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInvestorData, err)
		}
		if !sameStakeholders(expected, req.Stakeholders) {
			return fmt.Errorf("%w: batch does not match roster page %d", ErrInvalidInvestorData, req.PageIndex)
		}

		in := PageInput{
			Policy:    req.Policy,
			Progress:  progress,
			PageIndex: req.PageIndex,
			Final:     req.Final || last,
		}
		if req.PageIndex == 0 {
			if in.Claimed, err = e.claim(ctx, log, req.Stream, progress.CarryOver); err != nil {
				return err
			}
			in.TotalLocked, err = e.oracle.Prefetch(ctx, req.Stream, progress.LastEpochStart, stakeholderIDs(roster))
			if err != nil {
				return err
			}
		} else {
			// A cold cache (restart mid-epoch) is refilled for the whole
			// roster at once. Warm entries are not fetched again.
			total, err := e.oracle.Prefetch(ctx, req.Stream, progress.LastEpochStart, stakeholderIDs(roster))
			if err != nil {
				return err
			}
			if total != progress.TotalLocked {
				log.Warn("locked balances changed since page 0",
					"pinned_total", progress.TotalLocked, "current_total", total)
			}
		}
		if in.Stakeholders, err = e.lockedBalances(ctx, req.Stream, progress, req.Stakeholders); err != nil {
			return err
		}

		res, err = ComputePage(in)
		if err != nil {
			return err
		}
		if res.Complete {
			if err := e.sweepSurplus(ctx, req.Stream, res); err != nil {
				return err
			}
		}

		transfers := buildTransfers(res, global.Creator)
		if len(transfers) > 0 {
			if res.Signature, err = e.executor.Transfer(ctx, req.Stream, transfers); err != nil {
				return fmt.Errorf("payout: %w", err)
			}
		}

		res.Opened = decision.Opened
		res.Superseded = decision.Superseded
		events = append(events, pageEvents(req.Stream, res, now)...)

		st.Progress = res.Progress
		pinned := req.Policy.Clone()
		st.Policy = &pinned
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if res.Opened {
		transition := "opened"
		if res.Superseded {
			transition = "superseded"
		}
		metrics.EpochsTotal.WithLabelValues(transition).Inc()
	}
	if res.Complete {
		metrics.EpochsTotal.WithLabelValues("completed").Inc()
		e.oracle.Forget(req.Stream)
	}
	return res, events, nil
}

// claim runs the quote-only guard around the venue claim and returns the
// quote amount entering the pool. Treasury balance beyond the reserved
// carry-over and the new claim, left by an earlier aborted page 0, is swept
// into the claim, so a resubmitted page 0 recovers fees its failed attempt
// already claimed.
func (e *Engine) claim(ctx context.Context, log *slog.Logger, stream solana.PublicKey, carryOver uint64) (uint64, error) {
	pool, err := e.fees.PoolConfig(ctx, stream)
	if err != nil {
		return 0, fmt.Errorf("pool config: %w", err)
	}
	if err := guard.ValidatePool(*pool); err != nil {
		return 0, err
	}

	claim, err := e.fees.ClaimFees(ctx, stream)
	if err != nil {
		return 0, fmt.Errorf("claim fees: %w", err)
	}
	if claim.Base != 0 {
		return 0, guard.ValidateClaim(*claim)
	}

	balance, err := e.fees.TreasuryBalance(ctx, stream)
	if err != nil {
		return 0, fmt.Errorf("treasury balance: %w", err)
	}
	needed, err := feemath.CheckedAdd(carryOver, claim.Quote)
	if err != nil {
		return 0, err
	}
	if balance < needed {
		return 0, fmt.Errorf("%w: holds %d, needs %d", ErrTreasuryShortfall, balance, needed)
	}
	orphan := balance - needed
	if err := guard.ValidateClaim(guard.Claim{Quote: claim.Quote + orphan}); err != nil {
		return 0, err
	}
	if orphan > 0 {
		log.Warn("sweeping unaccounted treasury balance into pool", "amount", orphan)
	}
	return claim.Quote + orphan, nil
}

// sweepSurplus adds to the creator amount whatever the treasury holds beyond
// the payouts of the terminal page.
func (e *Engine) sweepSurplus(ctx context.Context, stream solana.PublicKey, res *PageResult) error {
	balance, err := e.fees.TreasuryBalance(ctx, stream)
	if err != nil {
		return fmt.Errorf("treasury balance: %w", err)
	}
	owed, err := feemath.CheckedAdd(res.InvestorTotal, res.CreatorAmount)
	if err != nil {
		return err
	}
	if balance < owed {
		return fmt.Errorf("%w: holds %d, owes %d", ErrTreasuryShortfall, balance, owed)
	}
	res.CreatorAmount += balance - owed
	return nil
}

func (e *Engine) lockedBalances(ctx context.Context, stream solana.PublicKey, p ledger.EpochProgress, batch []network.Stakeholder) ([]StakeholderRecord, error) {
	records := make([]StakeholderRecord, len(batch))
	for i, s := range batch {
		locked, err := e.oracle.LockedBalance(ctx, stream, p.LastEpochStart, s.ID)
		if err != nil {
			return nil, err
		}
		records[i] = StakeholderRecord{ID: s.ID, Destination: s.Destination, Locked: locked}
	}
	return records, nil
}

func sameStakeholders(expected, got []network.Stakeholder) bool {
	if len(expected) != len(got) {
		return false
	}
	for i := range expected {
		if expected[i] != got[i] {
			return false
		}
	}
	return true
}

func stakeholderIDs(roster []network.Stakeholder) []solana.PublicKey {
	ids := make([]solana.PublicKey, len(roster))
	for i, s := range roster {
		ids[i] = s.ID
	}
	return ids
}

func buildTransfers(res *PageResult, creator solana.PublicKey) []network.Transfer {
	transfers := make([]network.Transfer, 0, len(res.Payouts)+1)
	for _, p := range res.Payouts {
		transfers = append(transfers, network.Transfer{
			Destination: p.Destination,
			Amount:      p.Amount,
			Stakeholder: p.Stakeholder,
		})
	}
	if res.CreatorAmount > 0 {
		transfers = append(transfers, network.Transfer{Destination: creator, Amount: res.CreatorAmount})
	}
	return transfers
}

func pageEvents(stream solana.PublicKey, res *PageResult, now int64) []Event {
	var events []Event
	if res.PageIndex == 0 {
		events = append(events, QuoteFeesClaimed{
			Stream:    stream,
			Claimed:   res.Progress.ClaimedQuote,
			Pool:      res.Pool,
			Timestamp: now,
		})
	}
	events = append(events, InvestorPayoutPage{
		Stream:        stream,
		PageIndex:     res.PageIndex,
		InvestorCount: len(res.Payouts),
		Skipped:       len(res.Skipped),
		Distributed:   res.InvestorTotal,
		Signature:     res.Signature,
		Timestamp:     now,
	})
	if res.Complete {
		events = append(events, CreatorPayoutDayClosed{
			Stream:              stream,
			CreatorAmount:       res.CreatorAmount,
			InvestorDistributed: res.Progress.DailyDistributed,
			Signature:           res.Signature,
			Timestamp:           now,
		})
	}
	return events
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, epoch.ErrTooEarlyForDistribution):
		return "too_early"
	case errors.Is(err, epoch.ErrInvalidPageIndex):
		return "invalid_page"
	case errors.Is(err, epoch.ErrDistributionAlreadyComplete):
		return "already_complete"
	case errors.Is(err, guard.ErrDisallowedDenominationDetected), errors.Is(err, guard.ErrBaseFeeDetected),
		errors.Is(err, guard.ErrInvalidQuoteMint):
		return "quote_only_violation"
	case errors.Is(err, guard.ErrNoFeesAvailable):
		return "no_fees"
	case errors.Is(err, feemath.ErrArithmeticOverflow):
		return "overflow"
	default:
		return "error"
	}
}
