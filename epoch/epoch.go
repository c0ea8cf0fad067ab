// Package epoch decides whether a page may run against a stream's progress
// and opens new 24-hour distribution epochs.
package epoch

import (
	"fmt"

	"github.com/bitfsorg/feerouter-go/ledger"
)

// Decision describes what BeginOrContinue did to the progress record.
type Decision struct {
	// Opened is set when page 0 started a new epoch.
	Opened bool
	// Superseded is set when the new epoch replaced one whose terminal page
	// never ran. Its reserved pool stays in CarryOver.
	Superseded bool
	// Previous is the progress as it was before a new epoch was opened.
	Previous ledger.EpochProgress
}

// BeginOrContinue validates page against p at time now (unix seconds) and,
// for an accepted page 0, opens a new epoch in place. p is modified only when
// the returned error is nil.
func BeginOrContinue(p *ledger.EpochProgress, page uint32, now int64) (Decision, error) {
	if page == 0 && now >= p.NextEpochAt() {
		d := Decision{
			Opened:     true,
			Superseded: p.Phase() == ledger.PhaseInProgress,
			Previous:   *p,
		}
		open(p, now)
		return d, nil
	}

	switch {
	case page == 0 && p.Phase() == ledger.PhaseInProgress:
		return Decision{}, fmt.Errorf("%w: page 0 already accepted, expected %d", ErrInvalidPageIndex, p.PageCursor)
	case page == 0:
		return Decision{}, fmt.Errorf("%w: next epoch opens at %d, now %d", ErrTooEarlyForDistribution, p.NextEpochAt(), now)
	case p.EpochComplete:
		return Decision{}, fmt.Errorf("%w: epoch started at %d", ErrDistributionAlreadyComplete, p.LastEpochStart)
	case page != p.PageCursor:
		return Decision{}, fmt.Errorf("%w: got %d, expected %d", ErrInvalidPageIndex, page, p.PageCursor)
	}
	return Decision{}, nil
}

// open resets the per-epoch fields. CarryOver survives: it holds dust, or
// the unpaid reserve of a superseded epoch, for the next pool.
func open(p *ledger.EpochProgress, now int64) {
	p.LastEpochStart = now
	p.DailyDistributed = 0
	p.PageCursor = 0
	p.EpochComplete = false
	p.TotalLocked = 0
	p.InvestorPool = 0
	p.ClaimedQuote = 0
}
