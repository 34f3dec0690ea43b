package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/blocto/solana-go-sdk/types"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// ParsePrivateKey accepts a base58 secret key (64 bytes: seed || public key) or the JSON
// byte array written by solana-keygen.
func ParsePrivateKey(s string) (types.Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Account{}, fmt.Errorf("%w: empty", ErrInvalidPrivateKey)
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return types.Account{}, fmt.Errorf("%w: byte %d out of range", ErrInvalidPrivateKey, i)
			}
			raw[i] = byte(v)
		}
	} else {
		b, err := base58.Decode(s)
		if err != nil {
			return types.Account{}, fmt.Errorf("%w: not base58", ErrInvalidPrivateKey)
		}
		raw = b
	}

	if len(raw) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, ed25519.PrivateKeySize, len(raw))
	}

	// 公钥部分必须和种子推导出的一致
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return types.Account{}, fmt.Errorf("%w: public key does not match seed", ErrInvalidPrivateKey)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw[ed25519.SeedSize:]); err != nil {
		return types.Account{}, fmt.Errorf("%w: public key is not on curve", ErrInvalidPrivateKey)
	}

	account, err := types.AccountFromBytes(raw)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return account, nil
}

// Wallet is a freshly generated keypair.
type Wallet struct {
	Address string
	Secret  string // base58, 64 bytes
}

func GenerateWallet() Wallet {
	acc := types.NewAccount()
	return Wallet{
		Address: acc.PublicKey.ToBase58(),
		Secret:  base58.Encode(acc.PrivateKey),
	}
}

// ExplorerTxURL links a transaction on solscan. Non-mainnet clusters get a cluster parameter.
func ExplorerTxURL(signature, cluster string) string {
	return explorerURL("tx", signature, cluster)
}

// ExplorerTokenURL links a mint on solscan.
func ExplorerTokenURL(mint, cluster string) string {
	return explorerURL("token", mint, cluster)
}

func explorerURL(kind, id, cluster string) string {
	u := fmt.Sprintf("https://solscan.io/%s/%s", kind, id)
	switch cluster {
	case "", "mainnet", "mainnet-beta":
		return u
	default:
		return u + "?cluster=" + cluster
	}
}
