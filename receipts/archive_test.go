package receipts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/feerouter-go/distribution"
	"github.com/bitfsorg/feerouter-go/ledger"
)

func newTestArchive(t *testing.T) *FileArchive {
	t.Helper()
	a, err := NewFileArchive(filepath.Join(t.TempDir(), "receipts"))
	require.NoError(t, err)
	return a
}

func sampleReceipt(stream solana.PublicKey, epoch int64, page uint32) Receipt {
	return Receipt{
		Stream:        stream,
		EpochStart:    epoch,
		PageIndex:     page,
		RunID:         "run-1",
		Signature:     "sig",
		InvestorTotal: 700,
		CreatorAmount: 300,
		Complete:      true,
		Payouts: []Line{
			{Stakeholder: solana.NewWallet().PublicKey(), Destination: solana.NewWallet().PublicKey(), Locked: 10, Amount: 700},
		},
		ProcessedAt: 1_700_000_000,
	}
}

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

func TestKey(t *testing.T) {
	s := solana.NewWallet().PublicKey()

	k := Key(s, 100, 0)
	assert.Len(t, k, KeySize)
	assert.Equal(t, k, Key(s, 100, 0))
	assert.NotEqual(t, k, Key(s, 100, 1))
	assert.NotEqual(t, k, Key(s, 101, 0))
	assert.NotEqual(t, k, Key(solana.NewWallet().PublicKey(), 100, 0))
}

func TestKeyToPath(t *testing.T) {
	key := make([]byte, KeySize)
	key[0] = 0xab
	path := KeyToPath("/base", key)
	assert.Equal(t, filepath.Join("/base", "ab", "ab"+strings.Repeat("00", 31)), path)
}

// --------------------------------------------------------------------------
// FileArchive
// --------------------------------------------------------------------------

func TestNewFileArchive_EmptyDir(t *testing.T) {
	_, err := NewFileArchive("")
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestFileArchive_PutGet(t *testing.T) {
	a := newTestArchive(t)
	r := sampleReceipt(solana.NewWallet().PublicKey(), 86400, 2)

	require.NoError(t, a.Put(r))

	got, err := a.Get(r.Key())
	require.NoError(t, err)
	assert.Equal(t, r, *got)

	_, err = os.Stat(KeyToPath(a.baseDir, r.Key()) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileArchive_PutOverwrites(t *testing.T) {
	a := newTestArchive(t)
	r := sampleReceipt(solana.NewWallet().PublicKey(), 0, 0)
	require.NoError(t, a.Put(r))

	r.Signature = "retried"
	require.NoError(t, a.Put(r))

	got, err := a.Get(r.Key())
	require.NoError(t, err)
	assert.Equal(t, "retried", got.Signature)
}

func TestFileArchive_GetErrors(t *testing.T) {
	a := newTestArchive(t)

	_, err := a.Get([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = a.Get(Key(solana.NewWallet().PublicKey(), 0, 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileArchive_GetCorrupt(t *testing.T) {
	a := newTestArchive(t)
	key := Key(solana.NewWallet().PublicKey(), 0, 0)
	path := KeyToPath(a.baseDir, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0600))

	_, err := a.Get(key)
	assert.ErrorIs(t, err, ErrCorruptReceipt)
}

func TestFileArchive_ListOrdered(t *testing.T) {
	a := newTestArchive(t)
	s := solana.NewWallet().PublicKey()

	for _, r := range []Receipt{
		sampleReceipt(s, 172800, 0),
		sampleReceipt(s, 86400, 1),
		sampleReceipt(s, 86400, 0),
	} {
		require.NoError(t, a.Put(r))
	}
	// Strays are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(a.baseDir, "zz"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(a.baseDir, "README"), []byte("x"), 0600))

	got, err := a.List()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(86400), got[0].EpochStart)
	assert.Equal(t, uint32(0), got[0].PageIndex)
	assert.Equal(t, uint32(1), got[1].PageIndex)
	assert.Equal(t, int64(172800), got[2].EpochStart)
}

func TestFileArchive_ListEmpty(t *testing.T) {
	got, err := newTestArchive(t).List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --------------------------------------------------------------------------
// FromResult
// --------------------------------------------------------------------------

func TestFromResult(t *testing.T) {
	stream := solana.NewWallet().PublicKey()
	holder := solana.NewWallet().PublicKey()
	res := &distribution.PageResult{
		PageIndex:     0,
		Progress:      ledger.EpochProgress{LastEpochStart: 86400},
		Pool:          1000,
		EligibleBps:   8000,
		Payouts:       []distribution.Payout{{Stakeholder: holder, Destination: holder, Locked: 5, Amount: 800}},
		Skipped:       []distribution.Payout{{Stakeholder: holder, Locked: 1}},
		InvestorTotal: 800,
		CreatorAmount: 200,
		Complete:      true,
		Signature:     "abc",
		RunID:         "run",
	}

	r := FromResult(stream, res, 99)
	assert.Equal(t, stream, r.Stream)
	assert.Equal(t, int64(86400), r.EpochStart)
	assert.Equal(t, uint64(1000), r.Pool)
	assert.Equal(t, uint64(8000), r.EligibleBps)
	assert.Equal(t, "abc", r.Signature)
	assert.Equal(t, int64(99), r.ProcessedAt)
	require.Len(t, r.Payouts, 1)
	assert.Equal(t, uint64(800), r.Payouts[0].Amount)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, Key(stream, 86400, 0), r.Key())
}

func TestFromResult_NoPayouts(t *testing.T) {
	r := FromResult(solana.PublicKey{}, &distribution.PageResult{}, 0)
	assert.Nil(t, r.Payouts)
	assert.Nil(t, r.Skipped)
}
