package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

const (
	transferGasLimit    = 21000
	defaultReceiptPoll  = 2 * time.Second
	gasPriceNumerator   = 11
	gasPriceDenominator = 10
)

// walletBackend is the subset of ethclient.Client the wallet needs.
type walletBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *coretypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// Wallet holds the agent's key and sends plain value transfers.
type Wallet struct {
	backend     walletBackend
	key         *ecdsa.PrivateKey
	address     common.Address
	receiptPoll time.Duration
}

// NewWallet loads a hex-encoded private key.
func NewWallet(backend walletBackend, hexKey string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid agent private key: %w", err)
	}
	return &Wallet{
		backend:     backend,
		key:         key,
		address:     crypto.PubkeyToAddress(key.PublicKey),
		receiptPoll: defaultReceiptPoll,
	}, nil
}

func (w *Wallet) Address() common.Address { return w.address }

// Balance returns the latest balance in wei.
func (w *Wallet) Balance(ctx context.Context) (*big.Int, error) {
	bal, err := w.backend.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}
	return bal, nil
}

// Transfer signs and sends amountWei to the recipient, then waits for the
// receipt. Gas price is the node suggestion plus 10%.
func (w *Wallet) Transfer(ctx context.Context, to common.Address, amountWei *big.Int) (common.Hash, error) {
	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}
	gasPrice = new(big.Int).Div(new(big.Int).Mul(gasPrice, big.NewInt(gasPriceNumerator)), big.NewInt(gasPriceDenominator))
	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain id: %w", err)
	}

	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amountWei,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := w.waitMined(ctx, signed.Hash())
	if err != nil {
		return signed.Hash(), err
	}
	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		return signed.Hash(), ErrTransactionFailed
	}
	return signed.Hash(), nil
}

func (w *Wallet) waitMined(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	ticker := time.NewTicker(w.receiptPoll)
	defer ticker.Stop()
	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, gethcore.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// EtherToWei converts an ether amount to wei, truncating below one wei.
func EtherToWei(eth float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(params.Ether)).Int(nil)
	return wei
}

// WeiToEther converts wei to an approximate ether amount.
func WeiToEther(wei *big.Int) float64 {
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return eth
}
