// Package app wires the bot's components together and drives its
// periodic loops: the block scanner, the price/decision loop, and the
// optional metrics and status surfaces.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/config"
	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/evm"
	"github.com/BlueGuider/Price-Based-Bot/internal/monitor"
	"github.com/BlueGuider/Price-Based-Bot/internal/pattern"
	"github.com/BlueGuider/Price-Based-Bot/internal/pricing"
	"github.com/BlueGuider/Price-Based-Bot/internal/registry"
	"github.com/BlueGuider/Price-Based-Bot/internal/scanner"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
	chstore "github.com/BlueGuider/Price-Based-Bot/internal/storage/clickhouse"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage/memory"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage/migrations"
	pgstore "github.com/BlueGuider/Price-Based-Bot/internal/storage/postgres"
	"github.com/BlueGuider/Price-Based-Bot/internal/telemetry"
	"github.com/BlueGuider/Price-Based-Bot/internal/trader"
)

// App holds the assembled components and their shared lifecycle.
type App struct {
	cfg    *config.Config
	logger *log.Logger

	registry   *registry.Registry
	scanner    *scanner.Scanner
	loop       *monitor.Loop
	aggregates *telemetry.Aggregates

	// heads is nil when no websocket endpoint is configured; the
	// scanner then runs on its polling interval alone.
	heads *evm.HeadClient

	startedAt time.Time
	cleanups  []func()
}

// New assembles the application from configuration. The returned App
// owns every resource it opened; call Close after Run returns.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	createSelector, err := evm.HexToBytes(cfg.Ledger.CreateSelector)
	if err != nil {
		return nil, fmt.Errorf("parse create selector: %w", err)
	}
	infoSelector, err := evm.HexToBytes(cfg.Ledger.InfoSelector)
	if err != nil {
		return nil, fmt.Errorf("parse info selector: %w", err)
	}

	patterns, err := pattern.Load(cfg.PatternsPath, cfg.Defaults)
	if err != nil {
		return nil, fmt.Errorf("load trading patterns: %w", err)
	}
	logger.Printf("Loaded %d trading patterns from %s", len(patterns), cfg.PatternsPath)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		registry:   registry.New(cfg.Scanner.MaxTrackedTokens),
		aggregates: telemetry.NewAggregates(),
	}

	sink := telemetry.Multi{a.aggregates}
	if cfg.MetricsAddr != "" {
		sink = append(sink, telemetry.NewPromSink(telemetry.NewMetrics("price_based_bot")))
	}

	ledger := evm.NewHTTPClient(cfg.Ledger.RPCEndpoint)

	if cfg.Ledger.WSEndpoint != "" {
		heads, err := evm.NewHeadClient(ctx, cfg.Ledger.WSEndpoint, nil)
		if err != nil {
			// The head stream is only a nudge; polling still covers
			// every block.
			logger.Printf("newHeads subscription unavailable, scanning on interval only: %v", err)
		} else {
			a.heads = heads
		}
	}

	quoteCache := pricing.NewQuoteCache(
		pricing.NewHTTPQuoteSource(cfg.Quote.APIBaseURL, cfg.Quote.CoinID, cfg.Quote.Currency, cfg.Quote.ReqPerSec),
		cfg.Quote.TTL,
		cfg.Quote.FallbackPrice,
		logger,
	)

	pricer := pricing.NewReader(pricing.ReaderOptions{
		Ledger:          ledger,
		QuoteCache:      quoteCache,
		PlatformAddress: cfg.Ledger.PlatformAddress,
		InfoSelector:    infoSelector,
		WrappedNative:   cfg.Ledger.WrappedNativeAddress,
		StableAssets:    cfg.Ledger.StableAssets,
		MinPlausible:    cfg.Monitor.MinPlausibleFiat,
		MaxPlausible:    cfg.Monitor.MaxPlausibleFiat,
		Logger:          logger,
	})

	journal, ticks, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	executor, err := a.buildExecutor(journal, sink)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.scanner, err = scanner.New(scanner.Options{
		Ledger:           ledger,
		Registry:         a.registry,
		Patterns:         patterns,
		Pricer:           pricer,
		Sink:             sink,
		PlatformAddress:  cfg.Ledger.PlatformAddress,
		CreateSelector:   createSelector,
		TokenLogOffset:   cfg.Ledger.TokenLogOffset,
		MaxBlocksPerScan: cfg.Scanner.MaxBlocksPerScan,
		StartBlock:       cfg.Scanner.StartBlock,
		Logger:           logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	a.loop, err = monitor.NewLoop(monitor.LoopOptions{
		Registry: a.registry,
		Pricer:   pricer,
		Executor: executor,
		Quote:    quoteCache,
		Ticks:    ticks,
		Sink:     sink,
		Config: monitor.LoopConfig{
			BatchSize:   cfg.Monitor.BatchSize,
			BatchDelay:  cfg.Monitor.BatchDelay,
			ReadsPerSec: cfg.Monitor.ReadsPerSec,
			Removal: monitor.RemovalConfig{
				InactiveTimeout:   cfg.Monitor.InactiveTimeout,
				LowPriceFloorFiat: cfg.Monitor.LowPriceFloorFiat,
				LowPriceTimeout:   cfg.Monitor.LowPriceTimeout,
			},
		},
		Logger: logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create monitor loop: %w", err)
	}

	return a, nil
}

// openStores selects the storage backends: in-memory for local runs,
// PostgreSQL for the trade journal and ClickHouse for price history
// otherwise. The ClickHouse tick store stays optional either way.
func (a *App) openStores(ctx context.Context) (storage.TradeJournal, storage.PriceTickStore, error) {
	if a.cfg.Storage.UseMemory {
		return memory.NewTradeJournal(), memory.NewPriceTickStore(), nil
	}

	pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.cleanups = append(a.cleanups, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	var ticks storage.PriceTickStore
	if a.cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		a.cleanups = append(a.cleanups, func() {
			if err := conn.Close(); err != nil {
				a.logger.Printf("Close clickhouse connection: %v", err)
			}
		})
		ticks = chstore.NewPriceTickStore(conn)
	} else {
		a.logger.Println("No ClickHouse DSN configured, price history disabled")
	}

	return pgstore.NewTradeJournal(pool), ticks, nil
}

// buildExecutor picks the trade path. With trading disabled the loop's
// intents are only announced; in test mode orders go to the paper
// submitter. Live submission has no implementation here.
func (a *App) buildExecutor(journal storage.TradeJournal, sink telemetry.Sink) (monitor.Executor, error) {
	if !a.cfg.TradingEnabled {
		a.logger.Println("Trading disabled, trade intents will be logged only")
		return &announceExecutor{logger: a.logger}, nil
	}
	if !a.cfg.TestMode {
		return nil, errors.New("live order submission is not configured, enable testMode")
	}

	exec, err := trader.New(trader.Options{
		Registry:  a.registry,
		Submitter: trader.NewPaperSubmitter(a.logger),
		Journal:   journal,
		Sink:      sink,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create trade executor: %w", err)
	}
	return exec, nil
}

// Run drives the periodic loops until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.startedAt = time.Now()
	a.logger.Println("Starting price-based bot...")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runScanner(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runMonitor(ctx)
	}()

	if a.cfg.StatusInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runStatusReport(ctx)
		}()
	}

	if a.cfg.MetricsAddr != "" {
		go a.serveHTTP(ctx)
	}

	<-ctx.Done()
	a.logger.Println("Shutting down...")
	wg.Wait()
	a.logger.Printf("Final state: %s", a.aggregates.Summary())
	return ctx.Err()
}

// runScanner ticks the block scanner on its interval and additionally
// on every newHeads notification when the head stream is up.
func (a *App) runScanner(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Scanner.Interval)
	defer ticker.Stop()

	var heads <-chan evm.Head
	if a.heads != nil {
		heads = a.heads.Heads()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case _, ok := <-heads:
			if !ok {
				heads = nil
				continue
			}
		}
		if err := a.scanner.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Printf("Scanner tick failed: %v", err)
		}
	}
}

// runMonitor ticks the price/decision loop on its interval.
func (a *App) runMonitor(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Monitor.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := a.loop.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Printf("Monitor tick failed: %v", err)
		}
	}
}

// runStatusReport logs the aggregate trading summary periodically.
func (a *App) runStatusReport(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.logger.Printf("Status: %s, block %d", a.aggregates.Summary(), a.scanner.LastProcessed())
		}
	}
}

// statusResponse is the JSON body of the /status endpoint.
type statusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	LastBlock uint64 `json:"last_block"`
	Monitored int    `json:"monitored"`
	Traded    int    `json:"traded"`
	Summary   string `json:"summary"`
}

// serveHTTP exposes /metrics, /health and /status.
func (a *App) serveHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", telemetry.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Status:    "running",
			Uptime:    time.Since(a.startedAt).String(),
			LastBlock: a.scanner.LastProcessed(),
			Monitored: a.registry.Len(),
			Traded:    a.registry.TradedCount(),
			Summary:   a.aggregates.Summary(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Printf("Serving metrics on %s", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Printf("HTTP server error: %v", err)
	}
}

// Close releases every resource the App opened.
func (a *App) Close() {
	if a.heads != nil {
		a.heads.Close()
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

// announceExecutor logs trade intents without submitting orders. It
// stands in for the real executor when trading is disabled so the
// decision loop keeps running end to end.
type announceExecutor struct {
	logger *log.Logger
}

var _ monitor.Executor = (*announceExecutor)(nil)

func (e *announceExecutor) Buy(ctx context.Context, tokenAddress string) error {
	e.logger.Printf("Trading disabled, skipping buy of %s", tokenAddress)
	return nil
}

func (e *announceExecutor) Sell(ctx context.Context, tokenAddress string, mode domain.SellMode, reason string) error {
	e.logger.Printf("Trading disabled, skipping sell (%s) of %s: %s", mode, tokenAddress, reason)
	return nil
}
