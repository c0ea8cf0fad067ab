package ledger

import "errors"

var (
	// ErrInvalidPolicy indicates a policy outside its allowed ranges.
	ErrInvalidPolicy = errors.New("ledger: invalid policy")

	// ErrInvalidRecord indicates a persisted record is malformed.
	ErrInvalidRecord = errors.New("ledger: invalid record")

	// ErrUnsupportedVersion indicates a persisted record was written by a
	// newer layout.
	ErrUnsupportedVersion = errors.New("ledger: unsupported record version")

	// ErrGlobalConfigNotFound indicates the global configuration was never
	// initialized.
	ErrGlobalConfigNotFound = errors.New("ledger: global config not found")

	// ErrGlobalConfigExists indicates a second attempt to initialize the
	// global configuration.
	ErrGlobalConfigExists = errors.New("ledger: global config already exists")

	// ErrNilParam indicates a required parameter was nil.
	ErrNilParam = errors.New("ledger: nil parameter")
)
