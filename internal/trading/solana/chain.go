package solana

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// 默认 devnet 节点
const (
	DefaultRPCURL = "https://api.devnet.solana.com"
	DefaultWSURL  = "wss://api.devnet.solana.com"
)

// SignatureState 交易确认状态
type SignatureState int

const (
	SignaturePending SignatureState = iota
	SignatureConfirmed
	SignatureFailed
)

// SignatureStatus is the part of getSignatureStatuses the minter cares about.
type SignatureStatus struct {
	State SignatureState
	Err   string
}

// Chain is the subset of the JSON-RPC API used for minting.
type Chain interface {
	Balance(ctx context.Context, address string) (uint64, error)
	RentExemption(ctx context.Context, size uint64) (uint64, error)
	LatestBlockhash(ctx context.Context) (string, error)
	Send(ctx context.Context, tx types.Transaction) (string, error)
	SignatureStatus(ctx context.Context, signature string) (SignatureStatus, error)
}

// RPCChain implements Chain on top of the solana-go-sdk client.
type RPCChain struct {
	c *client.Client
}

func NewRPCChain(endpoint string) *RPCChain {
	if endpoint == "" {
		endpoint = DefaultRPCURL
	}
	return &RPCChain{c: client.NewClient(endpoint)}
}

func (r *RPCChain) Balance(ctx context.Context, address string) (uint64, error) {
	lamports, err := r.c.GetBalance(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return lamports, nil
}

func (r *RPCChain) RentExemption(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := r.c.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return 0, fmt.Errorf("failed to get rent exemption: %w", err)
	}
	return lamports, nil
}

func (r *RPCChain) LatestBlockhash(ctx context.Context) (string, error) {
	res, err := r.c.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return res.Blockhash, nil
}

func (r *RPCChain) Send(ctx context.Context, tx types.Transaction) (string, error) {
	sig, err := r.c.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

func (r *RPCChain) SignatureStatus(ctx context.Context, signature string) (SignatureStatus, error) {
	st, err := r.c.GetSignatureStatus(ctx, signature)
	if err != nil {
		return SignatureStatus{}, fmt.Errorf("failed to get signature status: %w", err)
	}
	if st == nil {
		return SignatureStatus{State: SignaturePending}, nil
	}
	if st.Err != nil {
		return SignatureStatus{State: SignatureFailed, Err: fmt.Sprint(st.Err)}, nil
	}
	if st.ConfirmationStatus != nil {
		switch *st.ConfirmationStatus {
		case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
			return SignatureStatus{State: SignatureConfirmed}, nil
		}
	}
	return SignatureStatus{State: SignaturePending}, nil
}
