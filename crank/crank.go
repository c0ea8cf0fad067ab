// Package crank drives distribution epochs to completion: it finds the next
// page of each stream, submits it through the engine with retries, and
// sleeps until the next epoch opens.
package crank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"github.com/bitfsorg/feerouter-go/distribution"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/ledger"
	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/receipts"
	"github.com/bitfsorg/feerouter-go/retry"
)

// Stream is one stream the crank distributes.
type Stream struct {
	Name   string
	ID     solana.PublicKey
	Policy ledger.Policy
}

// Config configures a Crank.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Engine *distribution.Engine
	Store  ledger.Store
	Roster network.Roster
	Retry  retry.Config
	// PollInterval bounds the sleep between passes.
	PollInterval time.Duration
	// OnError, if set, is called with every failed epoch run.
	OnError func(s Stream, err error)
	// Archive, if set, receives a receipt of every committed page.
	Archive receipts.Archive
}

// Validate checks required fields and fills defaults.
func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("%w: logger is required", ErrInvalidConfig)
	}
	if cfg.Engine == nil {
		return fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	if cfg.Store == nil {
		return fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if cfg.Roster == nil {
		return fmt.Errorf("%w: roster is required", ErrInvalidConfig)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Retry.Clock == nil {
		cfg.Retry.Clock = cfg.Clock
	}
	return nil
}

// Summary reports one epoch run of a stream.
type Summary struct {
	Stream        string
	Pages         int
	InvestorTotal uint64
	CreatorAmount uint64
	Complete      bool
}

// Crank runs epochs for a fixed set of streams.
type Crank struct {
	log *slog.Logger
	cfg Config
}

// New validates cfg and creates a Crank.
func New(cfg Config) (*Crank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Crank{log: cfg.Logger, cfg: cfg}, nil
}

// Run processes every due stream, then sleeps until the earliest next epoch
// (bounded by PollInterval) and repeats until ctx is done.
func (c *Crank) Run(ctx context.Context, streams []Stream) error {
	c.log.Info("crank: starting", "streams", len(streams))
	for {
		c.RunOnce(ctx, streams)

		wait := c.nextWake(ctx, streams)
		c.log.Debug("crank: sleeping", "duration", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.cfg.Clock.After(wait):
		}
	}
}

// RunOnce processes every due stream once. Failures are logged and reported
// through OnError; they do not stop the other streams.
func (c *Crank) RunOnce(ctx context.Context, streams []Stream) []Summary {
	var out []Summary
	for _, s := range streams {
		sum, err := c.safeRunEpoch(ctx, s)
		switch {
		case errors.Is(err, ErrNotDue):
			continue
		case errors.Is(err, guard.ErrNoFeesAvailable):
			c.log.Info("crank: no fees accrued, epoch not opened", "stream", s.Name)
			continue
		case err != nil:
			if ctx.Err() != nil {
				return out
			}
			c.log.Error("crank: epoch run failed", "stream", s.Name, "error", err)
			if c.cfg.OnError != nil {
				c.cfg.OnError(s, err)
			}
		}
		if sum != nil {
			out = append(out, *sum)
		}
	}
	return out
}

func (c *Crank) safeRunEpoch(ctx context.Context, s Stream) (sum *Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crank: panic: %v", r)
		}
	}()
	return c.RunEpoch(ctx, s)
}

// RunEpoch processes pages of s from the ledger cursor until the epoch
// completes. It returns ErrNotDue when no epoch is open or opening.
func (c *Crank) RunEpoch(ctx context.Context, s Stream) (*Summary, error) {
	st, err := c.cfg.Store.Load(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	page := uint32(0)
	switch st.Progress.Phase() {
	case ledger.PhaseInProgress:
		if c.cfg.Clock.Now().Unix() >= st.Progress.NextEpochAt() {
			c.log.Warn("crank: unfinished epoch will be superseded", "stream", s.Name, "cursor", st.Progress.PageCursor)
		} else {
			page = st.Progress.PageCursor
		}
	default:
		if st.Progress.LastEpochStart != 0 && c.cfg.Clock.Now().Unix() < st.Progress.NextEpochAt() {
			return nil, ErrNotDue
		}
	}

	roster, err := c.cfg.Roster.Stakeholders(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Stream: s.Name}
	for {
		batch, _, err := network.Page(roster, page, c.cfg.Engine.PageSize())
		if err != nil {
			return sum, err
		}
		req := distribution.PageRequest{
			Stream:       s.ID,
			PageIndex:    page,
			Policy:       s.Policy,
			Stakeholders: batch,
		}

		var res *distribution.PageResult
		err = retry.Do(ctx, c.cfg.Retry, func() error {
			var err error
			res, err = c.cfg.Engine.ProcessPage(ctx, req)
			return err
		})
		if err != nil {
			return sum, fmt.Errorf("page %d: %w", page, err)
		}

		c.archive(s, res)

		sum.Pages++
		sum.InvestorTotal += res.InvestorTotal
		sum.CreatorAmount += res.CreatorAmount
		if res.Complete {
			sum.Complete = true
			c.log.Info("crank: epoch complete", "stream", s.Name, "pages", sum.Pages,
				"investor_total", sum.InvestorTotal, "creator_amount", sum.CreatorAmount)
			return sum, nil
		}
		page = res.Progress.PageCursor
	}
}

// archive records res. The page is already committed, so failures are
// only logged.
func (c *Crank) archive(s Stream, res *distribution.PageResult) {
	if c.cfg.Archive == nil {
		return
	}
	r := receipts.FromResult(s.ID, res, c.cfg.Clock.Now().Unix())
	if err := c.cfg.Archive.Put(r); err != nil {
		c.log.Warn("crank: archive receipt", "stream", s.Name, "page", res.PageIndex, "error", err)
	}
}

// nextWake returns how long to sleep before the earliest stream is due.
func (c *Crank) nextWake(ctx context.Context, streams []Stream) time.Duration {
	wait := c.cfg.PollInterval
	now := c.cfg.Clock.Now().Unix()
	for _, s := range streams {
		st, err := c.cfg.Store.Load(ctx, s.ID)
		if err != nil {
			continue
		}
		due := time.Duration(st.Progress.NextEpochAt()-now) * time.Second
		if st.Progress.Phase() == ledger.PhaseInProgress || due <= 0 {
			// Due now or stuck mid-epoch: retry on the poll interval.
			continue
		}
		wait = min(wait, due)
	}
	return wait
}
