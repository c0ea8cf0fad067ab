package epoch

import "errors"

var (
	// ErrTooEarlyForDistribution indicates page 0 was submitted less than 24
	// hours after the current epoch started.
	ErrTooEarlyForDistribution = errors.New("epoch: too early for distribution")

	// ErrInvalidPageIndex indicates a page out of sequence, including a
	// replay of an already accepted page.
	ErrInvalidPageIndex = errors.New("epoch: invalid page index")

	// ErrDistributionAlreadyComplete indicates a page submitted after the
	// terminal page of the epoch.
	ErrDistributionAlreadyComplete = errors.New("epoch: distribution already complete")
)
