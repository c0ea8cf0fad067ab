package receipts

import (
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MaxReceiptSize bounds a decompressed receipt.
const MaxReceiptSize = 4 << 20

// Archive stores receipts by key.
type Archive interface {
	Put(r Receipt) error
	Get(key []byte) (*Receipt, error)
	List() ([]Receipt, error)
}

// FileArchive implements Archive on the local filesystem. Receipts are
// gzip-compressed JSON stored at {baseDir}/{hex(key[:1])}/{hex(key)}.
type FileArchive struct {
	baseDir string
	mu      sync.RWMutex
}

var _ Archive = (*FileArchive)(nil)

// NewFileArchive creates the archive directory if needed.
func NewFileArchive(baseDir string) (*FileArchive, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileArchive{baseDir: baseDir}, nil
}

// KeyToPath converts a key to its filesystem path, sharded on the first
// byte: {base}/{ab}/{abcdef...}.
func KeyToPath(baseDir string, key []byte) string {
	h := hex.EncodeToString(key)
	return filepath.Join(baseDir, h[:2], h)
}

func validateKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return nil
}

// Put writes r, replacing any earlier receipt of the same page.
func (a *FileArchive) Put(r Receipt) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	path := KeyToPath(a.baseDir, r.Key())

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	// Write then rename so a crash never leaves a truncated receipt.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Get reads the receipt stored under key.
func (a *FileArchive) Get(key []byte) (*Receipt, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(KeyToPath(a.baseDir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return decode(data)
}

// List returns every stored receipt ordered by stream, epoch and page.
func (a *FileArchive) List() ([]Receipt, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	shards, err := os.ReadDir(a.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	var out []Receipt
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		dir := filepath.Join(a.baseDir, shard.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			key, err := hex.DecodeString(f.Name())
			if err != nil || len(key) != KeySize {
				continue // temp files and strays
			}
			data, err := os.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
			}
			r, err := decode(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name(), err)
			}
			out = append(out, *r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if c := bytes.Compare(x.Stream[:], y.Stream[:]); c != 0 {
			return c < 0
		}
		if x.EpochStart != y.EpochStart {
			return x.EpochStart < y.EpochStart
		}
		return x.PageIndex < y.PageIndex
	})
	return out, nil
}

func encode(r Receipt) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if err := json.NewEncoder(w).Encode(r); err != nil {
		return nil, fmt.Errorf("receipts: encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("receipts: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*Receipt, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptReceipt, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, MaxReceiptSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptReceipt, err)
	}
	if len(raw) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptReceipt, err)
	}
	return &r, nil
}
