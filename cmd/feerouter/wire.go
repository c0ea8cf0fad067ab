package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/bitfsorg/feerouter-go/config"
	"github.com/bitfsorg/feerouter-go/crank"
	"github.com/bitfsorg/feerouter-go/guard"
	"github.com/bitfsorg/feerouter-go/ledger"
	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/sol"
)

var errNoProgramID = errors.New("programid is required to derive stream addresses from vault_seed")

// contractOracle routes each Streamflow contract to the oracle of the
// stream that lists it, so every stream checks its own vesting mint.
type contractOracle map[solana.PublicKey]network.LockedBalanceOracle

var _ network.LockedBalanceOracle = contractOracle(nil)

func (o contractOracle) LockedBalanceOf(ctx context.Context, id solana.PublicKey) (uint64, error) {
	oracle, ok := o[id]
	if !ok {
		return 0, fmt.Errorf("%w: contract %s is not on any roster", network.ErrInvalidOracleData, id)
	}
	return oracle.LockedBalanceOf(ctx, id)
}

// wiring holds the per-stream registrations built from the manifest.
type wiring struct {
	streams []crank.Stream
	fees    *sol.TreasuryFeeSource
	oracle  contractOracle
	roster  network.StaticRoster
}

func wireStreams(specs []config.StreamSpec, programID solana.PublicKey, client sol.RPC, executor *sol.TokenExecutor) (*wiring, error) {
	w := &wiring{
		fees:   sol.NewTreasuryFeeSource(client),
		oracle: make(contractOracle),
		roster: make(network.StaticRoster, len(specs)),
	}
	for _, spec := range specs {
		id, err := streamID(spec, programID)
		if err != nil {
			return nil, fmt.Errorf("stream %s: %w", spec.Name, err)
		}
		if _, dup := w.roster[id]; dup {
			return nil, fmt.Errorf("stream %s: address %s listed twice", spec.Name, id)
		}

		t := spec.Treasury
		claims := []sol.ClaimFunc{executor.SweepClaim(t.QuoteFeeAccount, t.Quote)}
		if !t.BaseFeeAccount.IsZero() {
			claims = append(claims, executor.SweepClaim(t.BaseFeeAccount, t.Base))
		}
		w.fees.Register(id, sol.Venue{
			Pool: guard.PoolConfig{
				TokenAMint:     spec.Pool.TokenAMint,
				TokenBMint:     spec.Pool.TokenBMint,
				QuoteMint:      spec.Pool.QuoteMint,
				CollectFeeMode: guard.CollectFeeMode(spec.Pool.CollectFeeMode),
			},
			QuoteTreasury: t.Quote,
			BaseTreasury:  t.Base,
			Claim:         sequence(claims),
		})
		executor.Register(id, t.Quote)

		oracle := sol.NewStreamflowOracle(client, sol.StreamflowProgramID, spec.VestingMint)
		holders := make([]network.Stakeholder, len(spec.Stakeholders))
		for i, h := range spec.Stakeholders {
			holders[i] = network.Stakeholder{ID: h.Contract, Destination: h.Destination}
			w.oracle[h.Contract] = oracle
		}
		w.roster[id] = holders

		w.streams = append(w.streams, crank.Stream{
			Name: spec.Name,
			ID:   id,
			Policy: ledger.Policy{
				InvestorFeeShareBps: spec.Policy.InvestorFeeShareBps,
				DailyCap:            spec.Policy.DailyCap,
				MinPayout:           spec.Policy.MinPayout,
				Y0Baseline:          spec.Policy.Y0Baseline,
			},
		})
	}
	return w, nil
}

func streamID(spec config.StreamSpec, programID solana.PublicKey) (solana.PublicKey, error) {
	if !spec.Stream.IsZero() {
		return spec.Stream, nil
	}
	if programID.IsZero() {
		return solana.PublicKey{}, errNoProgramID
	}
	acc, err := sol.DeriveStreamAccounts(programID, *spec.VaultSeed)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acc.PositionOwner, nil
}

func sequence(claims []sol.ClaimFunc) sol.ClaimFunc {
	return func(ctx context.Context) error {
		for _, c := range claims {
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// selectStreams filters streams by name; an empty name selects all.
func selectStreams(streams []crank.Stream, name string) ([]crank.Stream, error) {
	if name == "" {
		return streams, nil
	}
	for _, s := range streams {
		if s.Name == name {
			return []crank.Stream{s}, nil
		}
	}
	return nil, fmt.Errorf("no stream named %q in the manifest", name)
}
