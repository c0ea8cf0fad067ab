// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidCluster indicates the cluster name is not recognized.
	ErrInvalidCluster = errors.New("config: invalid cluster (must be \"localnet\", \"devnet\", \"testnet\", or \"mainnet\")")

	// ErrInvalidStoreBackend indicates the ledger backend is not recognized.
	ErrInvalidStoreBackend = errors.New("config: invalid store (must be \"bolt\" or \"postgres\")")

	// ErrMissingPostgresDSN indicates the postgres backend was selected
	// without a connection string.
	ErrMissingPostgresDSN = errors.New("config: postgres store requires pgdsn")

	// ErrInvalidMetricsAddr indicates the metrics listen address is malformed.
	ErrInvalidMetricsAddr = errors.New("config: invalid metrics address")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrInvalidPageSize indicates a page size outside [1, MaxPageSize].
	ErrInvalidPageSize = errors.New("config: invalid page size")

	// ErrInvalidConcurrency indicates a non-positive prefetch concurrency.
	ErrInvalidConcurrency = errors.New("config: prefetch concurrency must be positive")

	// ErrInvalidRPCRate indicates a negative request rate.
	ErrInvalidRPCRate = errors.New("config: rpc rate must not be negative")

	// ErrInvalidProgramID indicates the program id is not a base58 public key.
	ErrInvalidProgramID = errors.New("config: invalid program id")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidValue indicates a numeric key holds a value that does not parse.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrStreamsNotFound indicates the streams manifest does not exist.
	ErrStreamsNotFound = errors.New("config: streams manifest not found")

	// ErrInvalidStream indicates a malformed entry in the streams manifest.
	ErrInvalidStream = errors.New("config: invalid stream entry")
)
