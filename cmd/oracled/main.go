// Command oracled serves the PriceConverter feeds over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"priceconverter/api"
	"priceconverter/oracle/config"
	"priceconverter/oracle/feeds"
	"priceconverter/oracle/format"
	"priceconverter/oracle/ledger"
	"priceconverter/oracle/logging"
)

func main() {
	var port string

	rootCmd := &cobra.Command{
		Use:           "oracled",
		Short:         "Serve PriceConverter feed prices over a read-only JSON API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), port)
		},
	}
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to PORT or 8080)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, port string) error {
	cfg := config.Load()
	if port == "" {
		port = cfg.Port
	}

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

	parsed, _, err := ledger.LoadABI(cfg.ArtifactPath)
	if err != nil {
		return err
	}
	dispatcher := feeds.NewDispatcher(client.Bind(cfg.Contract(), parsed), nil, format.New(), logger)

	server := api.NewServer(dispatcher, dispatcher.Formatter(), api.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	logger.Info("Serving feeds",
		zap.String("network", network.Name),
		zap.String("contract", cfg.Contract().Hex()),
		zap.Strings("cors_origins", cfg.CORSOrigins))

	if err := server.ListenAndServe(ctx, ":"+port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
