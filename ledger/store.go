package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Store persists stream states and the global configuration.
type Store interface {
	// Update runs fn against the current state of stream inside one
	// serialized transaction. A missing record starts from the zero state.
	// The state is persisted only if fn returns nil; any error leaves the
	// stored record untouched.
	Update(ctx context.Context, stream solana.PublicKey, fn func(*StreamState) error) error

	// Load returns a snapshot of the state of stream. A missing record
	// yields the zero state, which is not persisted.
	Load(ctx context.Context, stream solana.PublicKey) (*StreamState, error)

	// InitGlobalConfig writes the global configuration. It fails with
	// ErrGlobalConfigExists if one is already stored.
	InitGlobalConfig(ctx context.Context, cfg *GlobalConfig) error

	// GlobalConfig returns the stored global configuration or
	// ErrGlobalConfigNotFound.
	GlobalConfig(ctx context.Context) (*GlobalConfig, error)

	// Close releases the underlying resources.
	Close() error
}

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu      sync.Mutex
	streams map[solana.PublicKey]*StreamState
	global  *GlobalConfig
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{streams: make(map[solana.PublicKey]*StreamState)}
}

// Update implements Store.
func (s *MemStore) Update(ctx context.Context, stream solana.PublicKey, fn func(*StreamState) error) error {
	if fn == nil {
		return fmt.Errorf("%w: update func", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.snapshot(stream)
	if err := fn(working); err != nil {
		return err
	}
	working.Stream = stream
	s.streams[stream] = working
	return nil
}

// Load implements Store.
func (s *MemStore) Load(_ context.Context, stream solana.PublicKey) (*StreamState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(stream), nil
}

func (s *MemStore) snapshot(stream solana.PublicKey) *StreamState {
	if st, ok := s.streams[stream]; ok {
		return st.Clone()
	}
	return &StreamState{Stream: stream}
}

// InitGlobalConfig implements Store.
func (s *MemStore) InitGlobalConfig(_ context.Context, cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: global config", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.global != nil {
		return ErrGlobalConfigExists
	}
	c := *cfg
	s.global = &c
	return nil
}

// GlobalConfig implements Store.
func (s *MemStore) GlobalConfig(_ context.Context) (*GlobalConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.global == nil {
		return nil, ErrGlobalConfigNotFound
	}
	c := *s.global
	return &c, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
