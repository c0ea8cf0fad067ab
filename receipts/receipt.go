// Package receipts archives one receipt per processed distribution page so
// operators can reconcile ledger state against on-chain transfers.
package receipts

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/distribution"
)

// KeySize is the length of a receipt key.
const KeySize = 32

// Receipt records what one page paid and to whom.
type Receipt struct {
	Stream     solana.PublicKey `json:"stream"`
	EpochStart int64            `json:"epoch_start"`
	PageIndex  uint32           `json:"page_index"`
	RunID      string           `json:"run_id"`
	Signature  string           `json:"signature,omitempty"`

	Pool          uint64 `json:"pool,omitempty"`
	EligibleBps   uint64 `json:"eligible_bps,omitempty"`
	InvestorTotal uint64 `json:"investor_total"`
	CreatorAmount uint64 `json:"creator_amount"`
	Complete      bool   `json:"complete"`
	Superseded    bool   `json:"superseded,omitempty"`

	Payouts     []Line `json:"payouts"`
	Skipped     []Line `json:"skipped,omitempty"`
	ProcessedAt int64  `json:"processed_at"`
}

// Line is one investor entry of a receipt.
type Line struct {
	Stakeholder solana.PublicKey `json:"stakeholder"`
	Destination solana.PublicKey `json:"destination"`
	Locked      uint64           `json:"locked"`
	Amount      uint64           `json:"amount"`
}

// FromResult builds the receipt of a committed page.
func FromResult(stream solana.PublicKey, res *distribution.PageResult, processedAt int64) Receipt {
	return Receipt{
		Stream:        stream,
		EpochStart:    res.Progress.LastEpochStart,
		PageIndex:     res.PageIndex,
		RunID:         res.RunID,
		Signature:     res.Signature,
		Pool:          res.Pool,
		EligibleBps:   res.EligibleBps,
		InvestorTotal: res.InvestorTotal,
		CreatorAmount: res.CreatorAmount,
		Complete:      res.Complete,
		Superseded:    res.Superseded,
		Payouts:       lines(res.Payouts),
		Skipped:       lines(res.Skipped),
		ProcessedAt:   processedAt,
	}
}

func lines(payouts []distribution.Payout) []Line {
	if len(payouts) == 0 {
		return nil
	}
	out := make([]Line, len(payouts))
	for i, p := range payouts {
		out[i] = Line{Stakeholder: p.Stakeholder, Destination: p.Destination, Locked: p.Locked, Amount: p.Amount}
	}
	return out
}

// Key returns the archive key of a page: SHA256(stream || epochStart || page).
func Key(stream solana.PublicKey, epochStart int64, page uint32) []byte {
	var buf [32 + 8 + 4]byte
	copy(buf[:32], stream[:])
	binary.BigEndian.PutUint64(buf[32:40], uint64(epochStart))
	binary.BigEndian.PutUint32(buf[40:], page)
	sum := sha256.Sum256(buf[:])
	return sum[:]
}

// Key returns the archive key of r.
func (r *Receipt) Key() []byte {
	return Key(r.Stream, r.EpochStart, r.PageIndex)
}
