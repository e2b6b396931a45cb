// Package main runs the price-based trading bot: it watches a ledger
// for new token launches, monitors their prices and paper-trades them
// according to configured patterns.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BlueGuider/Price-Based-Bot/internal/app"
	"github.com/BlueGuider/Price-Based-Bot/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath    string
		patternsPath  string
		rpcEndpoint   string
		wsEndpoint    string
		postgresDSN   string
		clickhouseDSN string
		useMemory     bool
		testMode      bool
		trading       bool
		startBlock    uint64
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Token launch monitor and price-based paper trader",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags beat the config file and environment, but only
			// when given explicitly.
			overrides := make(map[string]interface{})
			set := func(key, flag string, value interface{}) {
				if cmd.Flags().Changed(flag) {
					overrides[key] = value
				}
			}
			set("patternsPath", "patterns", patternsPath)
			set("ledger.rpcEndpoint", "rpc-endpoint", rpcEndpoint)
			set("ledger.wsEndpoint", "ws-endpoint", wsEndpoint)
			set("storage.postgresDSN", "postgres-dsn", postgresDSN)
			set("storage.clickhouseDSN", "clickhouse-dsn", clickhouseDSN)
			set("storage.useMemory", "use-memory", useMemory)
			set("testMode", "test-mode", testMode)
			set("tradingEnabled", "trading", trading)
			set("scanner.startBlock", "start-block", startBlock)
			set("metricsAddr", "metrics-addr", metricsAddr)

			cfg, err := config.Load(configPath, overrides)
			if err != nil {
				return err
			}

			logger := log.New(os.Stdout, "[bot] ", log.LstdFlags)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Println("Shutdown complete")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to the config file")
	flags.StringVar(&patternsPath, "patterns", "patterns.json", "path to the trading-pattern file")
	flags.StringVar(&rpcEndpoint, "rpc-endpoint", "", "ledger JSON-RPC HTTP endpoint")
	flags.StringVar(&wsEndpoint, "ws-endpoint", "", "ledger websocket endpoint for newHeads (optional)")
	flags.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for the trade journal")
	flags.StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for price history")
	flags.BoolVar(&useMemory, "use-memory", false, "use in-memory storage instead of PostgreSQL")
	flags.BoolVar(&testMode, "test-mode", true, "submit orders to the paper submitter")
	flags.BoolVar(&trading, "trading", true, "dispatch trade intents to the executor")
	flags.Uint64Var(&startBlock, "start-block", 0, "first block to scan, 0 starts at the chain tip")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address for the metrics/status HTTP server")

	return cmd
}
