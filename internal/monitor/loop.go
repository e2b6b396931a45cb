package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/pricing"
	"github.com/BlueGuider/Price-Based-Bot/internal/registry"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
	"github.com/BlueGuider/Price-Based-Bot/internal/telemetry"
)

// PriceReader resolves a token's current fiat price.
type PriceReader interface {
	ReadPrice(ctx context.Context, tokenAddress string) (*pricing.Price, error)
}

// Executor carries out the loop's trade intents.
type Executor interface {
	Buy(ctx context.Context, tokenAddress string) error
	Sell(ctx context.Context, tokenAddress string, mode domain.SellMode, reason string) error
}

// QuoteRefresher refreshes the quote-asset price if it has gone stale.
type QuoteRefresher interface {
	Refresh(ctx context.Context)
}

// LoopConfig holds the loop's scheduling and batching knobs.
type LoopConfig struct {
	BatchSize   int
	BatchDelay  time.Duration
	ReadsPerSec float64 // price-read rate limit, 0 disables
	Removal     RemovalConfig
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	Registry *registry.Registry
	Pricer   PriceReader
	Executor Executor
	Quote    QuoteRefresher
	Ticks    storage.PriceTickStore // optional price history
	Sink     telemetry.Sink
	Config   LoopConfig
	Logger   *log.Logger
}

// Loop is the price/decision loop. Tick is driven by the caller on a
// fixed interval and is not safe for concurrent use with itself.
type Loop struct {
	registry *registry.Registry
	pricer   PriceReader
	executor Executor
	quote    QuoteRefresher
	ticks    storage.PriceTickStore
	sink     telemetry.Sink
	config   LoopConfig
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewLoop creates a Loop.
func NewLoop(opts LoopOptions) (*Loop, error) {
	if opts.Registry == nil {
		return nil, errors.New("monitor: registry is required")
	}
	if opts.Pricer == nil {
		return nil, errors.New("monitor: price reader is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("monitor: executor is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}

	var limiter *rate.Limiter
	if cfg.ReadsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ReadsPerSec), cfg.BatchSize)
	}

	return &Loop{
		registry: opts.Registry,
		pricer:   opts.Pricer,
		executor: opts.Executor,
		quote:    opts.Quote,
		ticks:    opts.Ticks,
		sink:     sink,
		config:   cfg,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Tick re-prices every tracked token in rate-limited batches, folds the
// observations into the registry and acts on the resulting decisions.
func (l *Loop) Tick(ctx context.Context) error {
	if l.quote != nil {
		l.quote.Refresh(ctx)
	}

	snapshot := l.registry.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	now := time.Now()
	var (
		mu       sync.Mutex
		observed []*domain.PriceTick
	)

	for start := 0; start < len(snapshot); start += l.config.BatchSize {
		end := start + l.config.BatchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}

		var wg sync.WaitGroup
		for _, t := range snapshot[start:end] {
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()
				if tick := l.processToken(ctx, addr, now); tick != nil {
					mu.Lock()
					observed = append(observed, tick)
					mu.Unlock()
				}
			}(t.Address)
		}
		wg.Wait()

		if end < len(snapshot) && l.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.config.BatchDelay):
			}
		}
	}

	if l.ticks != nil && len(observed) > 0 {
		if err := l.ticks.InsertBatch(ctx, observed); err != nil {
			l.logger.Printf("price tick batch: %v", err)
		}
	}

	l.sink.SetMonitored(l.registry.Len())
	l.sink.SetTraded(l.registry.TradedCount())
	return nil
}

// processToken reads one token's price, updates registry state and
// dispatches whatever the evaluation decided. A failed read leaves
// prices untouched but still runs removal evaluation.
func (l *Loop) processToken(ctx context.Context, addr string, now time.Time) *domain.PriceTick {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	var tick *domain.PriceTick

	price, err := l.pricer.ReadPrice(ctx, addr)
	if err != nil {
		l.logger.Printf("price read %s: %v", addr, err)
		l.sink.OperationFailed(addr, "price", err.Error())
	} else {
		updateErr := l.registry.Update(addr, func(t *domain.MonitoredToken) {
			ApplyPrice(t, price.Fiat, l.config.Removal.LowPriceFloorFiat, now)
			tick = &domain.PriceTick{
				TokenAddress: addr,
				PriceFiat:    price.Fiat,
				ChangePct:    t.PriceChangePercent,
				ObservedAt:   now,
			}
		})
		if updateErr != nil {
			return nil // removed since the snapshot was taken
		}
	}

	snap, getErr := l.registry.Get(addr)
	if getErr != nil {
		return tick
	}

	decision := Evaluate(snap, l.config.Removal, now)
	switch {
	case decision.Removal != nil:
		l.remove(snap, decision.Removal)
	case decision.Trade != nil:
		l.dispatch(ctx, addr, decision.Trade)
	}

	return tick
}

func (l *Loop) remove(t *domain.MonitoredToken, intent *RemovalIntent) {
	if t.PositionOpen {
		// Funds are stranded in the open position; surface it loudly.
		l.logger.Printf("removing %s (%s) with an open position", t.Address, intent.Reason)
		l.sink.OperationFailed(t.Address, "remove", "open position at removal")
	}

	l.registry.Remove(t.Address, intent.MarkTraded)
	l.sink.TokenRemoved(t.Address, intent.Reason)
	l.logger.Printf("token %s removed: %s", t.Address, intent.Reason)
}

func (l *Loop) dispatch(ctx context.Context, addr string, intent *TradeIntent) {
	var err error
	switch intent.Side {
	case domain.TradeSideBuy:
		err = l.executor.Buy(ctx, addr)
	case domain.TradeSideSell:
		err = l.executor.Sell(ctx, addr, intent.Mode, intent.Reason)
	default:
		err = fmt.Errorf("unknown trade side %q", intent.Side)
	}
	if err != nil {
		l.logger.Printf("dispatch %s %s: %v", intent.Side, addr, err)
	}
}
