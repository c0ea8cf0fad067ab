// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gagliardetto/solana-go"
)

// StreamSpec describes one fee stream in the streams manifest.
type StreamSpec struct {
	Name string `json:"name"`

	// Stream is the stream identity. When zero it is derived from VaultSeed
	// and the configured program id.
	Stream    solana.PublicKey `json:"stream"`
	VaultSeed *uint64          `json:"vault_seed,omitempty"`

	Pool     PoolSpec     `json:"pool"`
	Treasury TreasurySpec `json:"treasury"`
	Policy   PolicySpec   `json:"policy"`

	// VestingMint, when set, is required of every Streamflow contract.
	VestingMint  solana.PublicKey  `json:"vesting_mint"`
	Stakeholders []StakeholderSpec `json:"stakeholders"`
}

// PoolSpec is the fee-bearing pool of a stream.
type PoolSpec struct {
	TokenAMint     solana.PublicKey `json:"token_a_mint"`
	TokenBMint     solana.PublicKey `json:"token_b_mint"`
	QuoteMint      solana.PublicKey `json:"quote_mint"`
	CollectFeeMode uint8            `json:"collect_fee_mode"`
}

// TreasurySpec names the token accounts fees flow through.
type TreasurySpec struct {
	Quote solana.PublicKey `json:"quote"`
	// Base is watched for base fee leaks during the claim. Required.
	Base solana.PublicKey `json:"base"`
	// QuoteFeeAccount and BaseFeeAccount are where the venue accrues fees;
	// the claim sweeps them into Quote and Base. BaseFeeAccount is optional.
	QuoteFeeAccount solana.PublicKey `json:"quote_fee_account"`
	BaseFeeAccount  solana.PublicKey `json:"base_fee_account"`
}

// PolicySpec is the distribution policy of a stream.
type PolicySpec struct {
	InvestorFeeShareBps uint16  `json:"investor_fee_share_bps"`
	DailyCap            *uint64 `json:"daily_cap,omitempty"`
	MinPayout           uint64  `json:"min_payout"`
	Y0Baseline          uint64  `json:"y0_baseline"`
}

// StakeholderSpec is one roster entry: a Streamflow contract and the token
// account its share is paid to.
type StakeholderSpec struct {
	Contract    solana.PublicKey `json:"contract"`
	Destination solana.PublicKey `json:"destination"`
}

// LoadStreams reads and checks the streams manifest at path.
func LoadStreams(path string) ([]StreamSpec, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStreamsNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var streams []StreamSpec
	if err := json.Unmarshal(data, &streams); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStream, err)
	}
	names := make(map[string]bool, len(streams))
	for i, s := range streams {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("stream %d (%s): %w", i, s.Name, err)
		}
		if names[s.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidStream, s.Name)
		}
		names[s.Name] = true
	}
	return streams, nil
}

func (s StreamSpec) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidStream)
	case s.Stream.IsZero() && s.VaultSeed == nil:
		return fmt.Errorf("%w: one of stream or vault_seed is required", ErrInvalidStream)
	case s.Treasury.Quote.IsZero():
		return fmt.Errorf("%w: missing quote treasury", ErrInvalidStream)
	case s.Treasury.QuoteFeeAccount.IsZero():
		return fmt.Errorf("%w: missing quote fee account", ErrInvalidStream)
	case s.Treasury.Base.IsZero():
		return fmt.Errorf("%w: missing base treasury", ErrInvalidStream)
	}
	seen := make(map[solana.PublicKey]bool, len(s.Stakeholders))
	for _, h := range s.Stakeholders {
		if h.Contract.IsZero() || h.Destination.IsZero() {
			return fmt.Errorf("%w: stakeholder needs contract and destination", ErrInvalidStream)
		}
		if seen[h.Contract] {
			return fmt.Errorf("%w: duplicate stakeholder %s", ErrInvalidStream, h.Contract)
		}
		seen[h.Contract] = true
	}
	return nil
}
