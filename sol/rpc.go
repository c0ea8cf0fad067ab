// Package sol implements the network ports on top of Solana: program-derived
// stream accounts, Streamflow locked balances, the quote treasury and SPL
// token payouts.
package sol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/bitfsorg/feerouter-go/metrics"
)

// RPC is the subset of the Solana JSON-RPC client used by the adapters.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

// Compile-time interface check.
var _ RPC = (*solanarpc.Client)(nil)

// LimitedRPC throttles an RPC client to a fixed request rate and counts
// requests per method.
type LimitedRPC struct {
	rpc     RPC
	limiter *rate.Limiter
}

var _ RPC = (*LimitedRPC)(nil)

// NewLimitedRPC wraps client. rps <= 0 disables throttling.
func NewLimitedRPC(client RPC, rps float64) *LimitedRPC {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &LimitedRPC{rpc: client, limiter: rate.NewLimiter(limit, 1)}
}

func (r *LimitedRPC) wait(ctx context.Context, method string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		metrics.RPCRequestsTotal.WithLabelValues(method, "throttled").Inc()
		return fmt.Errorf("sol: %s: %w", method, err)
	}
	return nil
}

func observe(method string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RPCRequestsTotal.WithLabelValues(method, status).Inc()
}

func (r *LimitedRPC) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	if err := r.wait(ctx, "getAccountInfo"); err != nil {
		return nil, err
	}
	res, err := r.rpc.GetAccountInfo(ctx, account)
	observe("getAccountInfo", err)
	return res, err
}

func (r *LimitedRPC) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error) {
	if err := r.wait(ctx, "getTokenAccountBalance"); err != nil {
		return nil, err
	}
	res, err := r.rpc.GetTokenAccountBalance(ctx, account, commitment)
	observe("getTokenAccountBalance", err)
	return res, err
}

func (r *LimitedRPC) GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	if err := r.wait(ctx, "getLatestBlockhash"); err != nil {
		return nil, err
	}
	res, err := r.rpc.GetLatestBlockhash(ctx, commitment)
	observe("getLatestBlockhash", err)
	return res, err
}

func (r *LimitedRPC) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := r.wait(ctx, "sendTransaction"); err != nil {
		return solana.Signature{}, err
	}
	sig, err := r.rpc.SendTransaction(ctx, tx)
	observe("sendTransaction", err)
	return sig, err
}

func (r *LimitedRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	if err := r.wait(ctx, "getSignatureStatuses"); err != nil {
		return nil, err
	}
	res, err := r.rpc.GetSignatureStatuses(ctx, searchTransactionHistory, sigs...)
	observe("getSignatureStatuses", err)
	return res, err
}

// tokenBalance returns the raw amount held by a token account. A missing
// account holds nothing.
func tokenBalance(ctx context.Context, client RPC, account solana.PublicKey) (uint64, error) {
	res, err := client.GetTokenAccountBalance(ctx, account, solanarpc.CommitmentConfirmed)
	if errors.Is(err, solanarpc.ErrNotFound) || (err != nil && strings.Contains(err.Error(), "could not find account")) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sol: token balance of %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%w: empty balance of %s", ErrInvalidAmount, account)
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, res.Value.Amount, err)
	}
	return amount, nil
}
