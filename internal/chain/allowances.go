// Package chain submits the on-chain approval transactions that let the
// Polymarket exchange contracts move the wallet's USDC (ERC-20) and
// conditional tokens (ERC-1155).
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evetabi/polyboard/internal/config"
	"github.com/evetabi/polyboard/internal/domain"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixed contract data
// ──────────────────────────────────────────────────────────────────────────────

// Token contracts on Polygon mainnet.
var (
	usdcAddress = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	ctfAddress  = common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045")
)

// Spender is one exchange contract that needs allowances.
type Spender struct {
	Name    string
	Address common.Address
}

// Spenders is the fixed batch: every contract that must be able to spend the
// wallet's collateral and transfer its conditional tokens.
var Spenders = []Spender{
	{Name: "CTF Exchange", Address: common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E")},
	{Name: "Neg Risk CTF Exchange", Address: common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")},
	{Name: "Neg Risk Adapter", Address: common.HexToAddress("0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296")},
}

const erc20ABI = `[{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}]`

const erc1155ABI = `[{"inputs":[{"internalType":"address","name":"operator","type":"address"},{"internalType":"bool","name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// ──────────────────────────────────────────────────────────────────────────────
// Backend & retry policy
// ──────────────────────────────────────────────────────────────────────────────

// Backend is the slice of an Ethereum node client the setter needs. Satisfied
// by *ethclient.Client; tests substitute a fake.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// RetryPolicy is a fixed-count, fixed-delay retry loop. No backoff, no jitter.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// ──────────────────────────────────────────────────────────────────────────────
// Setter
// ──────────────────────────────────────────────────────────────────────────────

// Setter runs the allowance batch: for each spender, an unlimited ERC-20
// approval on USDC and a blanket ERC-1155 operator approval on the CTF.
type Setter struct {
	backend Backend
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	logger  *slog.Logger

	nonceRetry     RetryPolicy
	sendRetry      RetryPolicy
	receiptTimeout time.Duration
	txPause        time.Duration

	erc20   abi.ABI
	erc1155 abi.ABI

	// sleep is swappable so tests do not wait out real delays.
	sleep func(time.Duration)
}

// NewSetter builds a Setter from config. The private key may carry a 0x prefix.
func NewSetter(cfg *config.ChainConfig, privateKeyHex string, backend Backend, logger *slog.Logger) (*Setter, error) {
	if privateKeyHex == "" {
		return nil, domain.ErrMissingPrivateKey
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain.NewSetter: parse private key: %w", err)
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("chain.NewSetter: parse ERC-20 ABI: %w", err)
	}
	erc1155, err := abi.JSON(strings.NewReader(erc1155ABI))
	if err != nil {
		return nil, fmt.Errorf("chain.NewSetter: parse ERC-1155 ABI: %w", err)
	}

	return &Setter{
		backend:        backend,
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(cfg.ChainID),
		logger:         logger,
		nonceRetry:     RetryPolicy{MaxAttempts: cfg.NonceAttempts, Delay: cfg.NonceDelay},
		sendRetry:      RetryPolicy{MaxAttempts: cfg.SendAttempts, Delay: cfg.SendDelay},
		receiptTimeout: cfg.ReceiptTimeout,
		txPause:        cfg.TxPause,
		erc20:          erc20,
		erc1155:        erc1155,
		sleep:          time.Sleep,
	}, nil
}

// Address returns the wallet address derived from the private key.
func (s *Setter) Address() common.Address {
	return s.address
}

// Run executes the full batch. A zero gas balance aborts before any
// transaction; an exhausted nonce fetch aborts the batch; any other per-action
// failure is logged and the batch moves on to the next action.
func (s *Setter) Run(ctx context.Context) error {
	s.logger.Info("setting up allowances", "address", s.address.Hex())

	balance, err := s.backend.BalanceAt(ctx, s.address, nil)
	if err != nil {
		return fmt.Errorf("chain.Run: fetch balance: %w", err)
	}
	s.logger.Info("current POL balance", "pol", decimal.NewFromBigInt(balance, -18).String())
	if balance.Sign() == 0 {
		return domain.ErrNoGasBalance
	}

	for _, spender := range Spenders {
		s.logger.Info("setting allowances", "spender", spender.Name)

		if err := s.approveAction(ctx, usdcAddress, s.erc20, "approve", spender.Address, ethmath.MaxBig256); err != nil {
			if errors.Is(err, domain.ErrNonceUnavailable) {
				return fmt.Errorf("chain.Run: %s USDC approval: %w", spender.Name, err)
			}
			s.logger.Error("failed to set USDC allowance", "spender", spender.Name, "err", err)
			// Without collateral spending approved, the operator approval
			// is pointless for this spender.
			continue
		}
		s.logger.Info("USDC allowance set", "spender", spender.Name)
		s.sleep(s.txPause)

		if err := s.approveAction(ctx, ctfAddress, s.erc1155, "setApprovalForAll", spender.Address, true); err != nil {
			if errors.Is(err, domain.ErrNonceUnavailable) {
				return fmt.Errorf("chain.Run: %s CTF approval: %w", spender.Name, err)
			}
			s.logger.Error("failed to set CTF allowance", "spender", spender.Name, "err", err)
			continue
		}
		s.logger.Info("CTF allowance set", "spender", spender.Name)
		s.sleep(s.txPause)
	}
	return nil
}

// approveAction builds, signs, and broadcasts one approval transaction.
func (s *Setter) approveAction(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) error {
	calldata, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := s.nextNonce(ctx)
	if err != nil {
		return err
	}

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &contract,
		Data: calldata,
	})
	if err != nil {
		return fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}

	return s.sendWithRetry(ctx, signed)
}

// nextNonce fetches the pending transaction count, retrying per the nonce
// policy. Fetched immediately before each transaction, never cached across the
// batch.
func (s *Setter) nextNonce(ctx context.Context) (uint64, error) {
	var lastErr error
	for attempt := 0; attempt < s.nonceRetry.MaxAttempts; attempt++ {
		nonce, err := s.backend.PendingNonceAt(ctx, s.address)
		if err == nil {
			return nonce, nil
		}
		lastErr = err
		s.logger.Warn("nonce fetch failed", "attempt", attempt+1, "err", err)
		s.sleep(s.nonceRetry.Delay)
	}
	return 0, fmt.Errorf("%w: %w", domain.ErrNonceUnavailable, lastErr)
}

// sendWithRetry broadcasts the signed transaction and waits for its receipt.
// A "nonce too low" rejection re-sends the same signed transaction after the
// policy delay; any other error surfaces immediately to abort the action.
func (s *Setter) sendWithRetry(ctx context.Context, signed *types.Transaction) error {
	for attempt := 0; attempt < s.sendRetry.MaxAttempts; attempt++ {
		err := s.broadcastAndWait(ctx, signed)
		if err == nil {
			return nil
		}
		if !isNonceTooLow(err) {
			return err
		}
		s.logger.Warn("nonce too low, retrying", "attempt", attempt+1, "tx", signed.Hash().Hex())
		s.sleep(s.sendRetry.Delay)
	}
	return domain.ErrTxRetriesExhausted
}

// broadcastAndWait sends the transaction and polls for a mined receipt within
// the receipt timeout.
func (s *Setter) broadcastAndWait(ctx context.Context, signed *types.Transaction) error {
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send tx %s: %w", signed.Hash().Hex(), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := s.backend.TransactionReceipt(waitCtx, signed.Hash())
		if err == nil && receipt != nil {
			s.logger.Info("transaction mined",
				"tx", signed.Hash().Hex(), "block", receipt.BlockNumber, "status", receipt.Status)
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("wait receipt %s: %w", signed.Hash().Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

// isNonceTooLow matches the node's nonce-reuse rejection.
func isNonceTooLow(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}
