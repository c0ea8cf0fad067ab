package sol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"

	"github.com/bitfsorg/feerouter-go/network"
	"github.com/bitfsorg/feerouter-go/retry"
)

// MaxTransfersPerBatch bounds a payout batch so that it fits in one
// transaction.
const MaxTransfersPerBatch = 16

const (
	defaultConfirmTimeout = 60 * time.Second
	confirmPollInterval   = 500 * time.Millisecond
)

// TokenExecutor implements network.PayoutExecutor with SPL token transfers
// out of each stream's quote treasury, all in a single transaction. Transfer
// returns only once the transaction is confirmed.
type TokenExecutor struct {
	rpc       RPC
	payer     solana.PrivateKey
	authority solana.PrivateKey

	clock          clockwork.Clock
	confirmTimeout time.Duration

	mu      sync.RWMutex
	sources map[solana.PublicKey]solana.PublicKey
}

var _ network.PayoutExecutor = (*TokenExecutor)(nil)

// ExecutorOption configures a TokenExecutor.
type ExecutorOption func(*TokenExecutor)

// WithExecutorClock sets the clock used while waiting for confirmation.
func WithExecutorClock(c clockwork.Clock) ExecutorOption {
	return func(e *TokenExecutor) { e.clock = c }
}

// WithConfirmTimeout bounds the wait for confirmation.
func WithConfirmTimeout(d time.Duration) ExecutorOption {
	return func(e *TokenExecutor) { e.confirmTimeout = d }
}

// NewTokenExecutor creates an executor. payer funds the transactions and
// authority owns the treasury token accounts; they may be the same key.
func NewTokenExecutor(client RPC, payer, authority solana.PrivateKey, opts ...ExecutorOption) *TokenExecutor {
	e := &TokenExecutor{
		rpc:            client,
		payer:          payer,
		authority:      authority,
		clock:          clockwork.NewRealClock(),
		confirmTimeout: defaultConfirmTimeout,
		sources:        make(map[solana.PublicKey]solana.PublicKey),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register sets the quote treasury token account paid out of for stream.
func (e *TokenExecutor) Register(stream, quoteTreasury solana.PublicKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[stream] = quoteTreasury
}

// Transfer implements network.PayoutExecutor.
func (e *TokenExecutor) Transfer(ctx context.Context, stream solana.PublicKey, transfers []network.Transfer) (string, error) {
	if len(transfers) > MaxTransfersPerBatch {
		return "", fmt.Errorf("%w: %d transfers, max %d", ErrBatchTooLarge, len(transfers), MaxTransfersPerBatch)
	}
	e.mu.RLock()
	source, ok := e.sources[stream]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStream, stream)
	}

	sig, err := e.send(ctx, source, transfers)
	if err != nil {
		return "", fmt.Errorf("sol: payout: %w", err)
	}
	return sig.String(), nil
}

// SweepClaim returns a ClaimFunc that moves the whole balance of feeAccount
// into treasury. It serves venues that accrue fees into a token account
// owned by the executor's authority.
func (e *TokenExecutor) SweepClaim(feeAccount, treasury solana.PublicKey) ClaimFunc {
	return func(ctx context.Context) error {
		amount, err := tokenBalance(ctx, e.rpc, feeAccount)
		if err != nil {
			return err
		}
		if amount == 0 {
			return nil
		}
		_, err = e.send(ctx, feeAccount, []network.Transfer{{Destination: treasury, Amount: amount}})
		if err != nil {
			return fmt.Errorf("sol: sweep %s: %w", feeAccount, err)
		}
		return nil
	}
}

func (e *TokenExecutor) send(ctx context.Context, source solana.PublicKey, transfers []network.Transfer) (solana.Signature, error) {
	tx, err := e.buildTx(ctx, source, transfers)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := e.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	if err := e.confirm(ctx, sig); err != nil {
		// The transaction may still land; it must never be resent.
		return solana.Signature{}, retry.Permanent(err)
	}
	return sig, nil
}

// confirm polls the signature status until the transaction reaches confirmed
// commitment, fails, or the confirm timeout elapses. Transient status lookup
// errors keep polling.
func (e *TokenExecutor) confirm(ctx context.Context, sig solana.Signature) error {
	deadline := e.clock.Now().Add(e.confirmTimeout)
	for {
		res, err := e.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil && !retry.IsRetryable(err) {
			return fmt.Errorf("signature status %s: %w", sig, err)
		}
		if err == nil && res != nil && len(res.Value) == 1 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
			}
			switch status.ConfirmationStatus {
			case solanarpc.ConfirmationStatusConfirmed, solanarpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		if !e.clock.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrNotConfirmed, sig, e.confirmTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(confirmPollInterval):
		}
	}
}

func (e *TokenExecutor) buildTx(ctx context.Context, source solana.PublicKey, transfers []network.Transfer) (*solana.Transaction, error) {
	instructions := make([]solana.Instruction, 0, len(transfers))
	for _, t := range transfers {
		ix, err := token.NewTransferInstruction(
			t.Amount,
			source,
			t.Destination,
			e.authority.PublicKey(),
			nil,
		).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("sol: build transfer to %s: %w", t.Destination, err)
		}
		instructions = append(instructions, ix)
	}

	recent, err := e.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("sol: latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(e.payer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("sol: build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(e.payer.PublicKey()):
			return &e.payer
		case key.Equals(e.authority.PublicKey()):
			return &e.authority
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sol: sign transaction: %w", err)
	}
	return tx, nil
}
