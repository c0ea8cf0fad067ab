package main

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/feerouter-go/config"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/sol"
)

func spec(name string) config.StreamSpec {
	quote := solana.NewWallet().PublicKey()
	dailyCap := uint64(5_000_000)
	return config.StreamSpec{
		Name: name,
		Pool: config.PoolSpec{
			TokenAMint:     solana.NewWallet().PublicKey(),
			TokenBMint:     quote,
			QuoteMint:      quote,
			CollectFeeMode: uint8(guard.CollectFeeOnlyB),
		},
		Treasury: config.TreasurySpec{
			Quote:           solana.NewWallet().PublicKey(),
			Base:            solana.NewWallet().PublicKey(),
			QuoteFeeAccount: solana.NewWallet().PublicKey(),
		},
		Policy: config.PolicySpec{InvestorFeeShareBps: 7000, DailyCap: &dailyCap, Y0Baseline: 1_000_000},
		Stakeholders: []config.StakeholderSpec{
			{Contract: solana.NewWallet().PublicKey(), Destination: solana.NewWallet().PublicKey()},
		},
	}
}

func TestWireStreams(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	seed := uint64(42)

	derived := spec("derived")
	derived.VaultSeed = &seed
	explicit := spec("explicit")
	explicit.Stream = solana.NewWallet().PublicKey()

	client := &sol.MockRPC{}
	executor := sol.NewTokenExecutor(client, solana.NewWallet().PrivateKey, solana.NewWallet().PrivateKey)
	w, err := wireStreams([]config.StreamSpec{derived, explicit}, programID, client, executor)
	require.NoError(t, err)
	require.Len(t, w.streams, 2)

	acc, err := sol.DeriveStreamAccounts(programID, seed)
	require.NoError(t, err)
	assert.Equal(t, acc.PositionOwner, w.streams[0].ID)
	assert.Equal(t, explicit.Stream, w.streams[1].ID)

	p := w.streams[0].Policy
	assert.Equal(t, uint16(7000), p.InvestorFeeShareBps)
	require.NotNil(t, p.DailyCap)
	assert.Equal(t, uint64(5_000_000), *p.DailyCap)
	require.NoError(t, p.Validate())

	ctx := context.Background()
	pool, err := w.fees.PoolConfig(ctx, explicit.Stream)
	require.NoError(t, err)
	assert.NoError(t, guard.ValidatePool(*pool))

	holders, err := w.roster.Stakeholders(ctx, acc.PositionOwner)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, derived.Stakeholders[0].Contract, holders[0].ID)
	assert.Equal(t, derived.Stakeholders[0].Destination, holders[0].Destination)
	assert.Len(t, w.oracle, 2)
}

func TestWireStreams_Errors(t *testing.T) {
	client := &sol.MockRPC{}
	executor := sol.NewTokenExecutor(client, solana.NewWallet().PrivateKey, solana.NewWallet().PrivateKey)

	seed := uint64(1)
	needsProgram := spec("seeded")
	needsProgram.VaultSeed = &seed
	_, err := wireStreams([]config.StreamSpec{needsProgram}, solana.PublicKey{}, client, executor)
	assert.ErrorIs(t, err, errNoProgramID)

	a, b := spec("a"), spec("b")
	a.Stream = solana.NewWallet().PublicKey()
	b.Stream = a.Stream
	_, err = wireStreams([]config.StreamSpec{a, b}, solana.PublicKey{}, client, executor)
	assert.ErrorContains(t, err, "listed twice")
}

func TestContractOracle_UnknownContract(t *testing.T) {
	_, err := contractOracle{}.LockedBalanceOf(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, network.ErrInvalidOracleData)
}

func TestSequence_StopsAtFirstError(t *testing.T) {
	var ran []int
	fail := func(ctx context.Context) error { ran = append(ran, 2); return context.Canceled }
	ok := func(ctx context.Context) error { ran = append(ran, 1); return nil }
	never := func(ctx context.Context) error { ran = append(ran, 3); return nil }

	err := sequence([]sol.ClaimFunc{ok, fail, never})(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{1, 2}, ran)
}

func TestSelectStreams(t *testing.T) {
	client := &sol.MockRPC{}
	executor := sol.NewTokenExecutor(client, solana.NewWallet().PrivateKey, solana.NewWallet().PrivateKey)
	a, b := spec("a"), spec("b")
	a.Stream, b.Stream = solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	w, err := wireStreams([]config.StreamSpec{a, b}, solana.PublicKey{}, client, executor)
	require.NoError(t, err)

	all, err := selectStreams(w.streams, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectStreams(w.streams, "b")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, b.Stream, one[0].ID)

	_, err = selectStreams(w.streams, "c")
	assert.Error(t, err)
}
