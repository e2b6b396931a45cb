package trader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/registry"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
	"github.com/BlueGuider/Price-Based-Bot/internal/telemetry"
)

// Executor errors. All are per-tick conditions; the decision loop
// simply retries on a later tick.
var (
	// ErrInFlight means an operation for the same token and side is
	// already running.
	ErrInFlight = errors.New("trade already in flight")

	// ErrCooldown means the sell cooldown since the last attempt has
	// not elapsed.
	ErrCooldown = errors.New("sell cooldown active")

	// ErrNoPosition means a sell was requested with no open position.
	ErrNoPosition = errors.New("no open position")

	// ErrPositionOpen means a buy was requested with a position open.
	ErrPositionOpen = errors.New("position already open")

	// ErrTradeCap means the per-token trade cap is exhausted.
	ErrTradeCap = errors.New("per-token trade cap reached")
)

// Options configures an Executor.
type Options struct {
	Registry  *registry.Registry
	Submitter OrderSubmitter
	Journal   storage.TradeJournal // optional audit log
	Sink      telemetry.Sink
	Logger    *log.Logger
}

// Executor owns the per-token buy and sell locks and reconciles every
// submission result into registry state.
type Executor struct {
	registry  *registry.Registry
	submitter OrderSubmitter
	journal   storage.TradeJournal
	sink      telemetry.Sink
	logger    *log.Logger

	buyLocks  *registry.KeyLocks
	sellLocks *registry.KeyLocks
}

// New creates an Executor.
func New(opts Options) (*Executor, error) {
	if opts.Registry == nil {
		return nil, errors.New("trader: registry is required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("trader: order submitter is required")
	}

	sink := opts.Sink
	if sink == nil {
		sink = telemetry.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Executor{
		registry:  opts.Registry,
		submitter: opts.Submitter,
		journal:   opts.Journal,
		sink:      sink,
		logger:    logger,
		buyLocks:  registry.NewKeyLocks(),
		sellLocks: registry.NewKeyLocks(),
	}, nil
}

// Buy opens a position in the token at the currently observed price.
// The position flag is set optimistically before submission and rolled
// back if the order fails.
func (e *Executor) Buy(ctx context.Context, tokenAddress string) error {
	if !e.buyLocks.TryAcquire(tokenAddress) {
		return ErrInFlight
	}
	defer e.buyLocks.Release(tokenAddress)

	snap, err := e.registry.Get(tokenAddress)
	if err != nil {
		return fmt.Errorf("buy %s: %w", tokenAddress, err)
	}
	if snap.PositionOpen {
		return ErrPositionOpen
	}
	params := snap.Params
	if params.MaxTradesPerToken > 0 && snap.TradeCount >= params.MaxTradesPerToken {
		return ErrTradeCap
	}

	price := snap.CurrentPriceFiat

	// Optimistic mark; a concurrent evaluation must not start a second
	// entry while the order is out.
	if err := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
		t.PositionOpen = true
	}); err != nil {
		return fmt.Errorf("buy %s: %w", tokenAddress, err)
	}

	res := e.submitter.SubmitBuy(ctx, tokenAddress, params.BuyAmountFiat)
	e.journalTrade(ctx, &domain.TradeRecord{
		ID:           uuid.NewString(),
		TokenAddress: tokenAddress,
		Side:         domain.TradeSideBuy,
		PriceFiat:    price,
		AmountFiat:   params.BuyAmountFiat,
		Reference:    res.Reference,
		Success:      res.Success,
		Reason:       res.Reason,
		TradeCycle:   snap.TradeCycle,
		ExecutedAt:   time.Now(),
	})

	if !res.Success {
		rollbackErr := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
			t.PositionOpen = false
		})
		if rollbackErr != nil {
			e.logger.Printf("buy rollback %s: %v", tokenAddress, rollbackErr)
		}
		e.sink.OperationFailed(tokenAddress, "buy", res.Reason)
		return fmt.Errorf("buy %s failed: %s", tokenAddress, res.Reason)
	}

	now := time.Now()
	if err := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
		t.PositionOpen = true
		t.BuyPriceFiat = price
		t.BuyTime = now
		t.PeakPriceSinceEntry = price
		t.HasSoldHalf = false
	}); err != nil {
		return fmt.Errorf("buy %s: %w", tokenAddress, err)
	}

	e.logger.Printf("bought %s at %.10f ref=%s", tokenAddress, price, res.Reference)
	e.sink.EntryTaken(tokenAddress, price)
	return nil
}

// Sell unwinds half or all of an open position. A full exit either
// rolls the token into a fresh re-entry cycle or finalizes it into the
// traded set.
func (e *Executor) Sell(ctx context.Context, tokenAddress string, mode domain.SellMode, reason string) error {
	if !e.sellLocks.TryAcquire(tokenAddress) {
		return ErrInFlight
	}
	defer e.sellLocks.Release(tokenAddress)

	snap, err := e.registry.Get(tokenAddress)
	if err != nil {
		return fmt.Errorf("sell %s: %w", tokenAddress, err)
	}
	if !snap.PositionOpen {
		return ErrNoPosition
	}

	params := snap.Params
	now := time.Now()
	if params.SellCooldown > 0 && !snap.LastSellAttemptAt.IsZero() &&
		now.Sub(snap.LastSellAttemptAt) < params.SellCooldown {
		return ErrCooldown
	}

	if err := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
		t.LastSellAttemptAt = now
	}); err != nil {
		return fmt.Errorf("sell %s: %w", tokenAddress, err)
	}

	price := snap.CurrentPriceFiat
	res := e.submitter.SubmitSell(ctx, tokenAddress, mode)
	e.journalTrade(ctx, &domain.TradeRecord{
		ID:           uuid.NewString(),
		TokenAddress: tokenAddress,
		Side:         domain.TradeSideSell,
		Mode:         mode,
		PriceFiat:    price,
		Reference:    res.Reference,
		Success:      res.Success,
		Reason:       reason,
		TradeCycle:   snap.TradeCycle,
		ExecutedAt:   now,
	})

	if !res.Success {
		e.sink.OperationFailed(tokenAddress, "sell", res.Reason)
		return fmt.Errorf("sell %s failed: %s", tokenAddress, res.Reason)
	}

	if mode == domain.SellHalf {
		if err := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
			t.HasSoldHalf = true
		}); err != nil {
			return fmt.Errorf("sell %s: %w", tokenAddress, err)
		}
		e.logger.Printf("sold half of %s at %.10f (%s)", tokenAddress, price, reason)
		e.sink.PartialExit(tokenAddress, price)
		return nil
	}

	var profit float64
	if snap.BuyPriceFiat > 0 {
		profit = (price - snap.BuyPriceFiat) / snap.BuyPriceFiat * params.BuyAmountFiat
	}

	nextCount := snap.TradeCount + 1
	exhausted := !params.ReentryEnabled ||
		(params.MaxTradesPerToken > 0 && nextCount >= params.MaxTradesPerToken)

	if err := e.registry.Update(tokenAddress, func(t *domain.MonitoredToken) {
		t.PositionOpen = false
		t.LastSellPriceFiat = price
		t.HasSoldHalf = false
		t.BuyPriceFiat = 0
		t.PeakPriceSinceEntry = 0
		t.TradeCount = nextCount
		t.TradeCycle++
		t.HasCompletedFirstCycle = true
	}); err != nil {
		return fmt.Errorf("sell %s: %w", tokenAddress, err)
	}

	e.logger.Printf("sold all of %s at %.10f (%s) profit=%.6f", tokenAddress, price, reason, profit)
	e.sink.FullExit(tokenAddress, price, profit, reason)

	if exhausted {
		e.registry.Remove(tokenAddress, true)
		e.sink.TokenRemoved(tokenAddress, domain.RemovalReasonExhausted)
		e.sink.SetMonitored(e.registry.Len())
		e.sink.SetTraded(e.registry.TradedCount())
		e.logger.Printf("token %s finalized after %d trade(s)", tokenAddress, nextCount)
	}
	return nil
}

// journalTrade appends an audit record; journal failures are logged,
// never propagated into trade reconciliation.
func (e *Executor) journalTrade(ctx context.Context, rec *domain.TradeRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Insert(ctx, rec); err != nil {
		e.logger.Printf("journal trade %s: %v", rec.TokenAddress, err)
	}
}
