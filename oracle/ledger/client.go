// Package ledger connects to an EVM network, signs with a single key and
// exposes the few reads and writes the console needs.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	// ErrInvalidPrivateKey is returned when PRIVATE_KEY is missing or malformed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrReceiptFailed is returned when a mined transaction reverted.
	ErrReceiptFailed = errors.New("transaction failed")
)

// DefaultPollInterval is how often WaitMined asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// Backend is the part of *ethclient.Client the console uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Client is a signing ledger client. The private key is parsed on first use
// so a bad key only surfaces when something needs it.
type Client struct {
	backend      Backend
	keyHex       string
	pollInterval time.Duration
	logger       *zap.Logger

	keyOnce sync.Once
	key     *ecdsa.PrivateKey
	keyErr  error
}

// Dial connects to rpcURL. For HTTP endpoints no request is made until the
// first call.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, logger *zap.Logger) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger: %w", err)
	}
	return NewClient(backend, privateKeyHex, logger), nil
}

// NewClient wraps an existing backend.
func NewClient(backend Backend, privateKeyHex string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		backend:      backend,
		keyHex:       privateKeyHex,
		pollInterval: DefaultPollInterval,
		logger:       logger,
	}
}

// SetPollInterval changes how often WaitMined polls.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.backend.Close()
}

func (c *Client) privateKey() (*ecdsa.PrivateKey, error) {
	c.keyOnce.Do(func() {
		hex := strings.TrimPrefix(strings.TrimSpace(c.keyHex), "0x")
		if hex == "" {
			c.keyErr = fmt.Errorf("%w: empty", ErrInvalidPrivateKey)
			return
		}
		key, err := crypto.HexToECDSA(hex)
		if err != nil {
			c.keyErr = fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
			return
		}
		c.key = key
	})
	return c.key, c.keyErr
}

// Address returns the account derived from the private key.
func (c *Client) Address() (common.Address, error) {
	key, err := c.privateKey()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// BalanceAt returns the latest balance of account in wei.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance of %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// Bind returns a read-only handle to the contract at address.
func (c *Client) Bind(address common.Address, parsed abi.ABI) *Contract {
	return &Contract{
		address: address,
		abi:     parsed,
		backend: c.backend,
	}
}
