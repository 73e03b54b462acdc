// Package deploy submits the PriceConverter contract and reports the result.
package deploy

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"priceconverter/oracle/common"
	"priceconverter/oracle/format"
	"priceconverter/oracle/ledger"
)

// Deployer is the ledger capability the routine needs.
type Deployer interface {
	Address() (ethcommon.Address, error)
	BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error)
	Deploy(ctx context.Context, parsed abi.ABI, bytecode []byte, args ...interface{}) (ethcommon.Address, *types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Report is what a successful deployment produced.
type Report struct {
	Deployer ethcommon.Address
	Address  ethcommon.Address
	TxHash   ethcommon.Hash
	GasUsed  uint64
}

// Routine deploys the contract once. It shares nothing with the console
// beyond the ledger client.
type Routine struct {
	ledger   Deployer
	artifact ledger.Artifact
	feeds    common.FeedSet
	out      io.Writer
	logger   *zap.Logger
}

// NewRoutine creates a deployment routine.
func NewRoutine(deployer Deployer, artifact ledger.Artifact, feeds common.FeedSet, out io.Writer, logger *zap.Logger) *Routine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Routine{
		ledger:   deployer,
		artifact: artifact,
		feeds:    feeds,
		out:      out,
		logger:   logger,
	}
}

// Run performs the deployment and prints progress. Address, hash and gas are
// printed only after the receipt confirms success.
func (r *Routine) Run(ctx context.Context) (*Report, error) {
	from, err := r.ledger.Address()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "🚀 Desplegando contrato con la cuenta: %s\n", from.Hex())

	balance, err := r.ledger.BalanceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "💰 Saldo de la cuenta: %s ETH\n", format.Ether(balance))

	if len(r.artifact.Bytecode) == 0 {
		return nil, ledger.ErrNoBytecode
	}
	fmt.Fprintln(r.out, "🔧 Fábrica del contrato obtenida...")

	address, tx, err := r.ledger.Deploy(ctx, r.artifact.ABI, r.artifact.Bytecode, r.feeds.Args()...)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(r.out, "⏳ Desplegando contrato...")
	r.logger.Info("Waiting for deployment",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("btc_usd", r.feeds.BTCUSD.Hex()),
		zap.String("eth_usd", r.feeds.ETHUSD.Hex()),
		zap.String("eur_usd", r.feeds.EURUSD.Hex()))

	receipt, err := r.ledger.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}
	if receipt.ContractAddress != (ethcommon.Address{}) {
		address = receipt.ContractAddress
	}

	report := &Report{
		Deployer: from,
		Address:  address,
		TxHash:   tx.Hash(),
		GasUsed:  receipt.GasUsed,
	}
	fmt.Fprintf(r.out, "✅ Contrato PriceConverter desplegado en: %s\n", report.Address.Hex())
	fmt.Fprintf(r.out, "📦 Hash de la transacción: %s\n", report.TxHash.Hex())
	fmt.Fprintf(r.out, "⛽ Gas usado para el despliegue: %d\n", report.GasUsed)
	return report, nil
}
