package network

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// StaticRoster is a fixed, in-memory Roster.
type StaticRoster map[solana.PublicKey][]Stakeholder

// Compile-time interface check.
var _ Roster = StaticRoster(nil)

// Stakeholders implements Roster.
func (r StaticRoster) Stakeholders(_ context.Context, stream solana.PublicKey) ([]Stakeholder, error) {
	list, ok := r[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStream, stream)
	}
	return list, nil
}

// PageCount returns the number of pages of size pageSize needed to cover n
// stakeholders. An empty roster still has one page, which carries the
// creator payout.
func PageCount(n, pageSize int) (uint32, error) {
	if pageSize <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	if n == 0 {
		return 1, nil
	}
	return uint32((n + pageSize - 1) / pageSize), nil
}

// Page returns the stakeholders of page index and whether it is the last
// page of the roster.
func Page(roster []Stakeholder, index uint32, pageSize int) ([]Stakeholder, bool, error) {
	count, err := PageCount(len(roster), pageSize)
	if err != nil {
		return nil, false, err
	}
	if index >= count {
		return nil, false, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, index, count)
	}
	start := int(index) * pageSize
	end := min(start+pageSize, len(roster))
	return roster[start:end], index == count-1, nil
}
