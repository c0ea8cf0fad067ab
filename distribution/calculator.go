// Package distribution computes and executes the per-page split of claimed
// quote fees between investors and the creator.
package distribution

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/feemath"
	"github.com/bitfsorg/feerouter-go/ledger"
)

// StakeholderRecord is one investor of a page with its locked balance.
type StakeholderRecord struct {
	ID          solana.PublicKey
	Destination solana.PublicKey
	Locked      uint64
}

// Payout is the share computed for one investor.
type Payout struct {
	Stakeholder solana.PublicKey
	Destination solana.PublicKey
	Locked      uint64
	Amount      uint64
}

// PageInput is everything ComputePage needs. Progress must already have
// passed the epoch gate for PageIndex.
type PageInput struct {
	Policy    ledger.Policy
	Progress  ledger.EpochProgress
	PageIndex uint32

	// Page 0 only. Later pages read both from Progress.
	Claimed     uint64
	TotalLocked uint64

	Stakeholders []StakeholderRecord
	// Final marks the terminal page of the epoch.
	Final bool
}

// PageResult is the outcome of one page.
type PageResult struct {
	PageIndex uint32
	// Progress is the proposed ledger state after the page.
	Progress ledger.EpochProgress

	// Pool and EligibleBps are set on page 0.
	Pool        uint64
	EligibleBps uint64

	Payouts       []Payout
	Skipped       []Payout // shares below the minimum payout, not disbursed
	InvestorTotal uint64
	CreatorAmount uint64
	Complete      bool

	// Filled in by Engine.
	Signature  string
	Opened     bool
	Superseded bool
	RunID      string
}

// ComputePage computes the payouts of one page and the resulting progress.
// It does not modify in.
func ComputePage(in PageInput) (*PageResult, error) {
	res := &PageResult{PageIndex: in.PageIndex, Progress: in.Progress}
	p := &res.Progress

	if in.PageIndex == 0 {
		done, err := openPool(in, res)
		if err != nil || done {
			return res, err
		}
	}

	for _, s := range in.Stakeholders {
		share, err := feemath.ProRataShare(s.Locked, p.InvestorPool, p.TotalLocked)
		if err != nil {
			return nil, fmt.Errorf("share of %s: %w", s.ID, err)
		}
		payout := Payout{Stakeholder: s.ID, Destination: s.Destination, Locked: s.Locked, Amount: share}
		if share == 0 || share < in.Policy.MinPayout {
			res.Skipped = append(res.Skipped, payout)
			continue
		}
		if res.InvestorTotal, err = feemath.CheckedAdd(res.InvestorTotal, share); err != nil {
			return nil, err
		}
		res.Payouts = append(res.Payouts, payout)
	}

	daily, err := feemath.CheckedAdd(p.DailyDistributed, res.InvestorTotal)
	if err != nil {
		return nil, err
	}
	if daily > p.InvestorPool {
		return nil, fmt.Errorf("%w: %d paid of %d", ErrInvestorPoolExceeded, daily, p.InvestorPool)
	}
	if p.CarryOver, err = feemath.CheckedSub(p.CarryOver, res.InvestorTotal); err != nil {
		return nil, err
	}
	p.DailyDistributed = daily

	if in.Final {
		closeEpoch(res)
	}
	p.PageCursor++
	return res, nil
}

// openPool fixes the epoch-wide pool on page 0. It reports done when the
// page needs no stakeholder iteration.
func openPool(in PageInput, res *PageResult) (bool, error) {
	p := &res.Progress
	pool, err := feemath.CheckedAdd(in.Claimed, p.CarryOver)
	if err != nil {
		return false, err
	}
	res.Pool = pool
	p.ClaimedQuote = in.Claimed
	p.TotalLocked = in.TotalLocked
	p.CarryOver = pool

	if in.TotalLocked == 0 {
		p.InvestorPool = 0
		closeEpoch(res)
		p.PageCursor++
		return true, nil
	}

	fLocked, err := feemath.LockedFractionBps(in.TotalLocked, in.Policy.Y0Baseline)
	if err != nil {
		return false, fmt.Errorf("locked fraction: %w", err)
	}
	res.EligibleBps = feemath.EligibleBps(in.Policy.InvestorFeeShareBps, fLocked)

	investorPool, err := feemath.ApplyBps(pool, res.EligibleBps)
	if err != nil {
		return false, fmt.Errorf("investor pool: %w", err)
	}
	if in.Policy.DailyCap != nil {
		investorPool = min(investorPool, feemath.SaturatingSub(*in.Policy.DailyCap, p.DailyDistributed))
	}
	p.InvestorPool = investorPool
	return false, nil
}

// closeEpoch routes everything still reserved to the creator.
func closeEpoch(res *PageResult) {
	p := &res.Progress
	res.CreatorAmount = p.CarryOver
	p.CarryOver = 0
	p.EpochComplete = true
	res.Complete = true
}
