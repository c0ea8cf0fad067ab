package sol

import (
	"context"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// MockRPC is a test double for RPC.
// All function fields must be set before the corresponding method is called.
type MockRPC struct {
	GetAccountInfoFn         func(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error)
	GetTokenAccountBalanceFn func(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error)
	GetLatestBlockhashFn     func(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	SendTransactionFn        func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatusesFn   func(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

func (m *MockRPC) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	return m.GetAccountInfoFn(ctx, account)
}
func (m *MockRPC) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetTokenAccountBalanceResult, error) {
	return m.GetTokenAccountBalanceFn(ctx, account, commitment)
}
func (m *MockRPC) GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	return m.GetLatestBlockhashFn(ctx, commitment)
}
func (m *MockRPC) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return m.SendTransactionFn(ctx, tx)
}
func (m *MockRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	return m.GetSignatureStatusesFn(ctx, searchTransactionHistory, sigs...)
}
