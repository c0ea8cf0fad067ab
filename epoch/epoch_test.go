package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/feerouter-go/ledger"
)

const t0 int64 = 1_700_000_000

func TestBeginOrContinue_FirstEpoch(t *testing.T) {
	var p ledger.EpochProgress
	d, err := BeginOrContinue(&p, 0, t0)
	require.NoError(t, err)
	assert.True(t, d.Opened)
	assert.False(t, d.Superseded)
	assert.Equal(t, t0, p.LastEpochStart)
	assert.Equal(t, uint32(0), p.PageCursor)
}

func TestBeginOrContinue_GateBoundary(t *testing.T) {
	completed := func() ledger.EpochProgress {
		return ledger.EpochProgress{
			LastEpochStart:   t0,
			DailyDistributed: 500,
			CarryOver:        3,
			PageCursor:       4,
			EpochComplete:    true,
			TotalLocked:      10,
			InvestorPool:     500,
			ClaimedQuote:     700,
		}
	}

	p := completed()
	_, err := BeginOrContinue(&p, 0, t0+ledger.SecondsPerDay-1)
	assert.ErrorIs(t, err, ErrTooEarlyForDistribution)
	assert.Equal(t, completed(), p, "rejected page must not modify progress")

	d, err := BeginOrContinue(&p, 0, t0+ledger.SecondsPerDay)
	require.NoError(t, err)
	assert.True(t, d.Opened)
	assert.False(t, d.Superseded)
	assert.Equal(t, completed(), d.Previous)
	assert.Equal(t, ledger.EpochProgress{
		LastEpochStart: t0 + ledger.SecondsPerDay,
		CarryOver:      3,
	}, p)
}

func TestBeginOrContinue_Sequence(t *testing.T) {
	p := ledger.EpochProgress{LastEpochStart: t0, PageCursor: 1}

	_, err := BeginOrContinue(&p, 2, t0+10)
	assert.ErrorIs(t, err, ErrInvalidPageIndex)

	d, err := BeginOrContinue(&p, 1, t0+10)
	require.NoError(t, err)
	assert.False(t, d.Opened)
	assert.Equal(t, ledger.EpochProgress{LastEpochStart: t0, PageCursor: 1}, p)
}

func TestBeginOrContinue_Replay(t *testing.T) {
	p := ledger.EpochProgress{LastEpochStart: t0, PageCursor: 3}

	_, err := BeginOrContinue(&p, 0, t0+60)
	assert.ErrorIs(t, err, ErrInvalidPageIndex, "page 0 of an open epoch is a replay")

	_, err = BeginOrContinue(&p, 2, t0+60)
	assert.ErrorIs(t, err, ErrInvalidPageIndex)
}

func TestBeginOrContinue_Complete(t *testing.T) {
	p := ledger.EpochProgress{LastEpochStart: t0, PageCursor: 2, EpochComplete: true}

	_, err := BeginOrContinue(&p, 2, t0+60)
	assert.ErrorIs(t, err, ErrDistributionAlreadyComplete)

	_, err = BeginOrContinue(&p, 1, t0+60)
	assert.ErrorIs(t, err, ErrDistributionAlreadyComplete)

	_, err = BeginOrContinue(&p, 0, t0+60)
	assert.ErrorIs(t, err, ErrTooEarlyForDistribution)
}

func TestBeginOrContinue_StaleEpochStillAcceptsPages(t *testing.T) {
	p := ledger.EpochProgress{LastEpochStart: t0, PageCursor: 2}
	_, err := BeginOrContinue(&p, 2, t0+3*ledger.SecondsPerDay)
	assert.NoError(t, err)
}

func TestBeginOrContinue_Supersede(t *testing.T) {
	p := ledger.EpochProgress{
		LastEpochStart:   t0,
		DailyDistributed: 300,
		CarryOver:        700,
		PageCursor:       2,
		TotalLocked:      50,
		InvestorPool:     800,
		ClaimedQuote:     1000,
	}
	d, err := BeginOrContinue(&p, 0, t0+ledger.SecondsPerDay)
	require.NoError(t, err)
	assert.True(t, d.Opened)
	assert.True(t, d.Superseded)
	assert.Equal(t, uint32(2), d.Previous.PageCursor)

	assert.Equal(t, uint64(700), p.CarryOver, "unpaid reserve rolls into the next epoch")
	assert.Equal(t, uint64(0), p.DailyDistributed)
	assert.Equal(t, uint64(0), p.InvestorPool)
	assert.Equal(t, uint32(0), p.PageCursor)
}

func TestBeginOrContinue_FreshStreamRejectsLaterPage(t *testing.T) {
	var p ledger.EpochProgress
	_, err := BeginOrContinue(&p, 1, t0)
	assert.ErrorIs(t, err, ErrInvalidPageIndex)
}
