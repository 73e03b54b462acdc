package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Deploy signs and submits a contract-creation transaction. It returns the
// address the contract will live at and the submitted transaction.
func (c *Client) Deploy(ctx context.Context, parsed abi.ABI, bytecode []byte, args ...interface{}) (common.Address, *types.Transaction, error) {
	if len(bytecode) == 0 {
		return common.Address{}, nil, ErrNoBytecode
	}
	key, err := c.privateKey()
	if err != nil {
		return common.Address{}, nil, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	ctorInput, err := parsed.Pack("", args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}
	input := make([]byte, 0, len(bytecode)+len(ctorInput))
	input = append(input, bytecode...)
	input = append(input, ctorInput...)

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, GasPrice: gasPrice, Data: input})
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		Value:    new(big.Int),
		Data:     input,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to sign deployment: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to send deployment: %w", err)
	}

	address := crypto.CreateAddress(from, nonce)
	c.logger.Info("Deployment submitted",
		zap.String("tx", signed.Hash().Hex()),
		zap.String("address", address.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas))
	return address, signed, nil
}

// WaitMined polls for the receipt of tx until it is included in a block or
// ctx is done. A reverted transaction returns its receipt and ErrReceiptFailed.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReceiptFailed, tx.Hash().Hex())
			}
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn("Receipt retrieval failed", zap.String("tx", tx.Hash().Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
