package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.etcd.io/bbolt"
)

var (
	bucketStreams = []byte("streams")
	bucketGlobal  = []byte("global")

	keyGlobalConfig = []byte("global_state")
)

// BoltStore persists stream states in a bbolt database. bbolt allows a single
// writer at a time, which serializes Update calls across all streams.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketStreams, bucketGlobal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Update implements Store.
func (s *BoltStore) Update(ctx context.Context, stream solana.PublicKey, fn func(*StreamState) error) error {
	if fn == nil {
		return fmt.Errorf("%w: update func", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := tx.Bucket(bucketStreams)
		working, err := readStream(b, stream)
		if err != nil {
			return err
		}
		if err := fn(working); err != nil {
			return err
		}
		working.Stream = stream
		if err := b.Put(stream[:], encodeStream(working)); err != nil {
			return fmt.Errorf("ledger: put stream %s: %w", stream, err)
		}
		return nil
	})
}

// Load implements Store.
func (s *BoltStore) Load(_ context.Context, stream solana.PublicKey) (*StreamState, error) {
	var st *StreamState
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		st, err = readStream(tx.Bucket(bucketStreams), stream)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// readStream decodes the record of stream, or returns the zero state when
// none is stored. The returned value does not alias bbolt memory.
func readStream(b *bbolt.Bucket, stream solana.PublicKey) (*StreamState, error) {
	data := b.Get(stream[:])
	if data == nil {
		return &StreamState{Stream: stream}, nil
	}
	st, err := decodeStream(stream, data)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode stream %s: %w", stream, err)
	}
	return st, nil
}

// InitGlobalConfig implements Store.
func (s *BoltStore) InitGlobalConfig(_ context.Context, cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: global config", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketGlobal)
		if b.Get(keyGlobalConfig) != nil {
			return ErrGlobalConfigExists
		}
		if err := b.Put(keyGlobalConfig, EncodeGlobalConfig(cfg)); err != nil {
			return fmt.Errorf("ledger: put global config: %w", err)
		}
		return nil
	})
}

// GlobalConfig implements Store.
func (s *BoltStore) GlobalConfig(_ context.Context) (*GlobalConfig, error) {
	var g *GlobalConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketGlobal).Get(keyGlobalConfig)
		if data == nil {
			return ErrGlobalConfigNotFound
		}
		var err error
		g, err = DecodeGlobalConfig(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
