// Package ledger holds the durable per-stream distribution state and the
// stores that persist it.
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/feemath"
)

// SecondsPerDay is the minimum spacing between two epoch starts.
const SecondsPerDay int64 = 86_400

// GlobalConfig is the process-wide configuration, written once.
type GlobalConfig struct {
	// Creator is the creator's quote token account. It receives the
	// remainder of every epoch.
	Creator solana.PublicKey
}

// Policy parameterizes how a stream's fees are split. It is pinned to the
// stream on first use and read-only afterwards.
type Policy struct {
	InvestorFeeShareBps uint16
	DailyCap            *uint64 // nil means no cap
	MinPayout           uint64
	Y0Baseline          uint64 // total investor allocation minted at TGE
}

// Validate checks the policy ranges.
func (p Policy) Validate() error {
	if err := feemath.ValidateBps(uint64(p.InvestorFeeShareBps)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	if p.Y0Baseline == 0 {
		return fmt.Errorf("%w: zero y0 baseline", ErrInvalidPolicy)
	}
	return nil
}

// Equal reports whether two policies carry the same parameters.
func (p Policy) Equal(o Policy) bool {
	if p.InvestorFeeShareBps != o.InvestorFeeShareBps ||
		p.MinPayout != o.MinPayout ||
		p.Y0Baseline != o.Y0Baseline {
		return false
	}
	if (p.DailyCap == nil) != (o.DailyCap == nil) {
		return false
	}
	return p.DailyCap == nil || *p.DailyCap == *o.DailyCap
}

// Clone returns a deep copy of the policy.
func (p Policy) Clone() Policy {
	if p.DailyCap != nil {
		c := *p.DailyCap
		p.DailyCap = &c
	}
	return p
}

// Phase is the position of a stream within its current epoch.
type Phase int

const (
	// PhaseAwaitingPage0 means no epoch is open: either none was ever opened
	// or the last one completed and page 0 of the next is due.
	PhaseAwaitingPage0 Phase = iota
	// PhaseInProgress means page 0 was accepted and later pages are pending.
	PhaseInProgress
	// PhaseComplete means the terminal page of the epoch was accepted.
	PhaseComplete
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingPage0:
		return "awaiting_page0"
	case PhaseInProgress:
		return "in_progress"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// EpochProgress is the durable progress record of one stream.
type EpochProgress struct {
	LastEpochStart   int64  // unix seconds of the current epoch's page 0
	DailyDistributed uint64 // paid to investors in the current epoch
	CarryOver        uint64 // reserved, not yet disbursed quote amount
	PageCursor       uint32 // next expected page index
	EpochComplete    bool

	// Fixed by page 0 and reused by every later page of the epoch.
	TotalLocked  uint64
	InvestorPool uint64
	ClaimedQuote uint64
}

// Phase derives the epoch phase from the record.
func (p *EpochProgress) Phase() Phase {
	switch {
	case p.EpochComplete:
		return PhaseComplete
	case p.PageCursor > 0:
		return PhaseInProgress
	default:
		return PhaseAwaitingPage0
	}
}

// NextEpochAt returns the earliest unix time at which page 0 may open a new
// epoch.
func (p *EpochProgress) NextEpochAt() int64 {
	return p.LastEpochStart + SecondsPerDay
}

// StreamState is everything persisted for one fee stream.
type StreamState struct {
	Stream   solana.PublicKey
	Policy   *Policy // nil until the first accepted page pins it
	Progress EpochProgress
}

// Clone returns a deep copy of the state.
func (s *StreamState) Clone() *StreamState {
	c := *s
	if s.Policy != nil {
		p := s.Policy.Clone()
		c.Policy = &p
	}
	return &c
}
