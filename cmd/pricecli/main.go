// Command pricecli is the interactive Chainlink price console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"priceconverter/oracle/config"
	"priceconverter/oracle/feeds"
	"priceconverter/oracle/format"
	"priceconverter/oracle/ledger"
	"priceconverter/oracle/logging"
	"priceconverter/oracle/session"
	"priceconverter/oracle/ui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pricecli",
		Short:         "Query BTC, ETH and EUR prices from the PriceConverter contract",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	network, rpcURL, err := cfg.ResolveNetwork()
	if err != nil {
		return err
	}

	client, err := ledger.Dial(ctx, rpcURL, cfg.PrivateKey, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	parsed, embedded, err := ledger.LoadABI(cfg.ArtifactPath)
	if err != nil {
		return err
	}
	contract := client.Bind(cfg.Contract(), parsed)
	logger.Info("Session starting",
		zap.String("network", network.Name),
		zap.Int64("chain_id", network.ChainID),
		zap.String("contract", contract.Address().Hex()),
		zap.Bool("embedded_abi", embedded))

	term := ui.New(os.Stdin, os.Stdout)
	defer term.Close()

	dispatcher := feeds.NewDispatcher(contract, term.Indicator, format.New(), logger)
	console := &session.Console{
		Reporter:     session.NewBalanceReporter(client, client.Address, os.Stdout),
		Loop:         session.NewLoop(term.Selector, dispatcher, os.Stdout, logger),
		Out:          os.Stdout,
		Logger:       logger,
		FatalBalance: cfg.FatalBalance,
	}
	return console.Run(ctx)
}
