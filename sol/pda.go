package sol

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	seedGlobalState   = []byte("global_state")
	seedVault         = []byte("vault")
	seedPositionOwner = []byte("investor_fee_pos_owner")
	seedProgress      = []byte("distribution_progress")
	seedPolicy        = []byte("policy_config")
	seedQuoteTreasury = []byte("quote_treasury")
)

// StreamAccounts are the program-derived addresses of one fee stream.
type StreamAccounts struct {
	VaultSeed uint64
	// PositionOwner owns the fee position and identifies the stream.
	PositionOwner solana.PublicKey
	// QuoteTreasury is the authority of the treasury token accounts.
	QuoteTreasury solana.PublicKey
	Progress      solana.PublicKey
	Policy        solana.PublicKey
}

// GlobalStateAddress returns the address of the process-wide configuration.
func GlobalStateAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedGlobalState}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("sol: derive global state: %w", err)
	}
	return addr, nil
}

// DeriveStreamAccounts derives the addresses of the stream identified by
// vaultSeed.
func DeriveStreamAccounts(programID solana.PublicKey, vaultSeed uint64) (*StreamAccounts, error) {
	seed := make([]byte, 8)
	binary.LittleEndian.PutUint64(seed, vaultSeed)

	acc := &StreamAccounts{VaultSeed: vaultSeed}
	derive := []struct {
		name  string
		seeds [][]byte
		out   *solana.PublicKey
	}{
		{"position owner", [][]byte{seedVault, seed, seedPositionOwner}, &acc.PositionOwner},
		{"quote treasury", [][]byte{seedQuoteTreasury, seed}, &acc.QuoteTreasury},
		{"progress", [][]byte{seedProgress, seed}, &acc.Progress},
		{"policy", [][]byte{seedPolicy, seed}, &acc.Policy},
	}
	for _, d := range derive {
		addr, _, err := solana.FindProgramAddress(d.seeds, programID)
		if err != nil {
			return nil, fmt.Errorf("sol: derive %s: %w", d.name, err)
		}
		*d.out = addr
	}
	return acc, nil
}
