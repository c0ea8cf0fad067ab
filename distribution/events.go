package distribution

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

// Event is a notification published after a page commits.
type Event interface {
	EventName() string
}

// QuoteFeesClaimed is published when page 0 claims the epoch's fees.
type QuoteFeesClaimed struct {
	Stream    solana.PublicKey
	Claimed   uint64
	Pool      uint64 // claimed plus carry-over
	Timestamp int64
}

// InvestorPayoutPage is published for every accepted page.
type InvestorPayoutPage struct {
	Stream        solana.PublicKey
	PageIndex     uint32
	InvestorCount int
	Skipped       int
	Distributed   uint64
	Signature     string
	Timestamp     int64
}

// CreatorPayoutDayClosed is published when the terminal page completes an
// epoch.
type CreatorPayoutDayClosed struct {
	Stream              solana.PublicKey
	CreatorAmount       uint64
	InvestorDistributed uint64
	Signature           string
	Timestamp           int64
}

// EpochSuperseded is published when a new epoch replaces one whose terminal
// page never ran.
type EpochSuperseded struct {
	Stream        solana.PublicKey
	PreviousStart int64
	PageCursor    uint32
	RolledOver    uint64
	Timestamp     int64
}

func (QuoteFeesClaimed) EventName() string       { return "quote_fees_claimed" }
func (InvestorPayoutPage) EventName() string     { return "investor_payout_page" }
func (CreatorPayoutDayClosed) EventName() string { return "creator_payout_day_closed" }
func (EpochSuperseded) EventName() string        { return "epoch_superseded" }

// EventSink receives published events.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event) error

// Publish implements EventSink.
func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogSink writes events as structured log records.
type LogSink struct {
	Log *slog.Logger
}

// Publish implements EventSink.
func (s LogSink) Publish(ctx context.Context, ev Event) error {
	var attrs []any
	switch e := ev.(type) {
	case QuoteFeesClaimed:
		attrs = []any{"stream", e.Stream, "claimed", e.Claimed, "pool", e.Pool}
	case InvestorPayoutPage:
		attrs = []any{"stream", e.Stream, "page", e.PageIndex, "investors", e.InvestorCount,
			"skipped", e.Skipped, "distributed", e.Distributed, "signature", e.Signature}
	case CreatorPayoutDayClosed:
		attrs = []any{"stream", e.Stream, "creator_amount", e.CreatorAmount,
			"investor_distributed", e.InvestorDistributed, "signature", e.Signature}
	case EpochSuperseded:
		attrs = []any{"stream", e.Stream, "previous_start", e.PreviousStart,
			"page_cursor", e.PageCursor, "rolled_over", e.RolledOver}
	}
	s.Log.InfoContext(ctx, "event: "+ev.EventName(), attrs...)
	return nil
}
