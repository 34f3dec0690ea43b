package solana

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/songzhibin97/memeflux/internal/trading"
)

const (
	TokenDecimals = 9
	// InitialSupply 1,000,000 个代币（最小单位）
	InitialSupply uint64 = 1_000_000 * 1_000_000_000

	// DefaultMinBalance 0.05 SOL
	DefaultMinBalance uint64 = 50_000_000
	// feePerMint 两个签名者的交易费
	feePerMint uint64 = 10_000
)

// Minter implements TokenMinter interface on Solana
type Minter struct {
	chain      Chain
	confirmer  Confirmer
	wallet     types.Account
	minBalance uint64
	logger     *slog.Logger
	newMint    func() types.Account
}

func NewMinter(chain Chain, confirmer Confirmer, wallet types.Account, logger *slog.Logger) *Minter {
	return &Minter{
		chain:      chain,
		confirmer:  confirmer,
		wallet:     wallet,
		minBalance: DefaultMinBalance,
		logger:     logger,
		newMint:    types.NewAccount,
	}
}

// WithMinBalance overrides the balance floor in lamports.
func (m *Minter) WithMinBalance(lamports uint64) *Minter {
	m.minBalance = lamports
	return m
}

func (m *Minter) Address() string {
	return m.wallet.PublicKey.ToBase58()
}

// CheckFunding implements TokenMinter interface. The wallet must hold at least the floor and
// enough to pay rent and fees for count mints.
func (m *Minter) CheckFunding(ctx context.Context, count int) (*trading.FundingStatus, error) {
	balance, err := m.chain.Balance(ctx, m.Address())
	if err != nil {
		return nil, err
	}

	perMint, err := m.costPerMint(ctx)
	if err != nil {
		return nil, err
	}

	required := m.minBalance
	if count > 0 {
		if need := perMint * uint64(count); need > required {
			required = need
		}
	}

	return &trading.FundingStatus{
		Address:    m.Address(),
		Lamports:   balance,
		Required:   required,
		Sufficient: balance >= required,
	}, nil
}

func (m *Minter) costPerMint(ctx context.Context) (uint64, error) {
	mintRent, err := m.chain.RentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return 0, err
	}
	ataRent, err := m.chain.RentExemption(ctx, token.TokenAccountSize)
	if err != nil {
		return 0, err
	}
	return mintRent + ataRent + feePerMint, nil
}

// MintToken implements TokenMinter interface. A single transaction creates the mint account,
// initializes it with the wallet as mint and freeze authority, creates the wallet's associated
// token account and mints the initial supply into it.
func (m *Minter) MintToken(ctx context.Context, req trading.MintRequest) (*trading.MintResult, error) {
	mint := m.newMint()
	fail := func(stage string, err error) (*trading.MintResult, error) {
		return nil, &trading.MintError{Symbol: req.Symbol, Stage: stage, Err: err}
	}

	m.logger.Info("creating SPL token",
		"name", req.Name,
		"symbol", req.Symbol,
		"description", req.Description,
		"mint", mint.PublicKey.ToBase58(),
	)

	tx, err := m.buildMintTx(ctx, mint)
	if err != nil {
		return fail("build", err)
	}

	sig, err := m.chain.Send(ctx, tx)
	if err != nil {
		return fail("send", err)
	}

	if err := m.confirmer.Confirm(ctx, sig); err != nil {
		return fail("confirm", err)
	}

	return &trading.MintResult{
		MintAddress: mint.PublicKey.ToBase58(),
		Signature:   sig,
	}, nil
}

func (m *Minter) buildMintTx(ctx context.Context, mint types.Account) (types.Transaction, error) {
	owner := m.wallet.PublicKey

	rent, err := m.chain.RentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return types.Transaction{}, err
	}

	ata, _, err := common.FindAssociatedTokenAddress(owner, mint.PublicKey)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	blockhash, err := m.chain.LatestBlockhash(ctx)
	if err != nil {
		return types.Transaction{}, err
	}

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        owner,
			RecentBlockhash: blockhash,
			Instructions: []types.Instruction{
				system.CreateAccount(system.CreateAccountParam{
					From:     owner,
					New:      mint.PublicKey,
					Owner:    common.TokenProgramID,
					Lamports: rent,
					Space:    token.MintAccountSize,
				}),
				token.InitializeMint(token.InitializeMintParam{
					Decimals:   TokenDecimals,
					Mint:       mint.PublicKey,
					MintAuth:   owner,
					FreezeAuth: &owner,
				}),
				associated_token_account.Create(associated_token_account.CreateParam{
					Funder:                 owner,
					Owner:                  owner,
					Mint:                   mint.PublicKey,
					AssociatedTokenAccount: ata,
				}),
				token.MintTo(token.MintToParam{
					Mint:   mint.PublicKey,
					To:     ata,
					Auth:   owner,
					Amount: InitialSupply,
				}),
			},
		}),
		Signers: []types.Account{m.wallet, mint},
	})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
