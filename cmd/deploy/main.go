// Command deploy publishes the PriceConverter contract with the feed
// addresses of the selected network.
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
	"priceconverter/oracle/deploy"
	"priceconverter/oracle/ledger"
	"priceconverter/oracle/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "deploy",
		Short:         "Deploy the PriceConverter contract",
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
		fmt.Fprintf(os.Stderr, "❌ Error durante el despliegue: %s\n", err.Error())
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

	artifact, err := ledger.LoadArtifact(cfg.ArtifactPath)
	if err != nil {
		return err
	}

	client, err := ledger.Dial(ctx, rpcURL, cfg.PrivateKey, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	report, err := deploy.NewRoutine(client, artifact, network.Feeds, os.Stdout, logger).Run(ctx)
	if err != nil {
		logger.Error("Deployment failed", zap.String("network", network.Name), zap.Error(err))
		return err
	}
	logger.Info("Deployment finished",
		zap.String("network", network.Name),
		zap.String("address", report.Address.Hex()),
		zap.String("tx", report.TxHash.Hex()),
		zap.Uint64("gas_used", report.GasUsed))
	return nil
}
