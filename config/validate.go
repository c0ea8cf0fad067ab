// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validClusters = map[string]bool{
	"localnet": true,
	"devnet":   true,
	"testnet":  true,
	"mainnet":  true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validClusters[cfg.Cluster] {
		return ErrInvalidCluster
	}

	if cfg.RPCRate < 0 {
		return ErrInvalidRPCRate
	}

	if cfg.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProgramID, err)
		}
	}

	switch cfg.Store {
	case StoreBolt:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return ErrMissingPostgresDSN
		}
	default:
		return ErrInvalidStoreBackend
	}

	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidPageSize, cfg.PageSize, MaxPageSize)
	}

	if cfg.PrefetchConcurrency < 1 {
		return ErrInvalidConcurrency
	}

	// An empty metrics address disables the endpoint.
	if cfg.MetricsAddr != "" {
		if err := validateAddr(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMetricsAddr, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
