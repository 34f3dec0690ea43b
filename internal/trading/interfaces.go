package trading

import (
	"context"
	"errors"
	"fmt"
)

// ErrInsufficientFunds 钱包余额不足以支付本轮铸造
var ErrInsufficientFunds = errors.New("insufficient funds")

// LamportsPerSOL 1 SOL = 1e9 lamports
const LamportsPerSOL = 1_000_000_000

// TokenMinter defines methods for creating new SPL tokens
type TokenMinter interface {
	// MintToken creates a mint, its associated token account and the initial supply
	MintToken(ctx context.Context, req MintRequest) (*MintResult, error)

	// CheckFunding reports whether the wallet can pay for count mints
	CheckFunding(ctx context.Context, count int) (*FundingStatus, error)

	// Address returns the base58 wallet address
	Address() string
}

// MintRequest 铸造请求
type MintRequest struct {
	Name        string
	Symbol      string
	Description string
}

// MintResult 铸造结果
type MintResult struct {
	MintAddress string // 新代币的 mint 地址
	Signature   string // 交易签名
}

// FundingStatus 钱包资金状况
type FundingStatus struct {
	Address    string
	Lamports   uint64 // 当前余额
	Required   uint64 // 本次需要的最低余额
	Sufficient bool
}

// SOL returns the balance in SOL.
func (f FundingStatus) SOL() float64 {
	return float64(f.Lamports) / LamportsPerSOL
}

// RequiredSOL returns the required balance in SOL.
func (f FundingStatus) RequiredSOL() float64 {
	return float64(f.Required) / LamportsPerSOL
}

// Err returns ErrInsufficientFunds when the wallet is short.
func (f FundingStatus) Err() error {
	if f.Sufficient {
		return nil
	}
	return fmt.Errorf("%w: have %.4f SOL, need %.4f SOL", ErrInsufficientFunds, f.SOL(), f.RequiredSOL())
}

// MintError is a failed mint attempt for one symbol.
type MintError struct {
	Symbol string
	Stage  string // build, send, confirm
	Err    error
}

func (e *MintError) Error() string {
	return fmt.Sprintf("mint %s failed at %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *MintError) Unwrap() error { return e.Err }

// PriceQuoter quotes a spot price for display purposes.
type PriceQuoter interface {
	// LastPrice returns the latest trade price of symbol, e.g. SOLUSDT
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
