// Package monitor re-prices tracked tokens on a fixed interval and
// turns each observation into trade and removal intents. Decision logic
// lives in pure functions over a token snapshot; the loop applies the
// side effects.
package monitor

import (
	"math"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// TradeIntent is a buy or sell the decision logic wants executed.
type TradeIntent struct {
	Side   string // domain.TradeSideBuy or domain.TradeSideSell
	Mode   domain.SellMode
	Reason string // exit reason code for sells
}

// RemovalIntent takes a token out of monitoring.
type RemovalIntent struct {
	Reason     string
	MarkTraded bool
}

// Decision is the outcome of evaluating one token snapshot. At most one
// trade intent is produced per evaluation; removal wins over trading.
type Decision struct {
	Trade   *TradeIntent
	Removal *RemovalIntent
}

// RemovalConfig holds the lifecycle-removal knobs shared by all tokens.
type RemovalConfig struct {
	// InactiveTimeout removes a token when no price read succeeded for
	// this long.
	InactiveTimeout time.Duration

	// LowPriceFloorFiat and LowPriceTimeout remove a token whose price
	// sat at or under the floor continuously for the whole duration.
	LowPriceFloorFiat float64
	LowPriceTimeout   time.Duration
}

// ApplyPrice folds one successful price observation into the token.
// LastPriceChangeAt only advances when the move beats the pattern's
// noise threshold; the running peak ratchets while a position is open;
// the low-price timer anchors on the first observation at or under the
// floor and resets when price recovers.
func ApplyPrice(t *domain.MonitoredToken, priceFiat float64, floorFiat float64, now time.Time) {
	var changeFrac float64
	if t.CurrentPriceFiat > 0 {
		changeFrac = (priceFiat - t.CurrentPriceFiat) / t.CurrentPriceFiat
	}

	t.PreviousPriceFiat = t.CurrentPriceFiat
	t.CurrentPriceFiat = priceFiat
	t.PriceChangePercent = changeFrac * 100
	t.LastPriceUpdateAt = now

	if math.Abs(changeFrac) > t.Params.NoiseThresholdPct {
		t.LastPriceChangeAt = now
	}

	if t.PositionOpen && priceFiat > t.PeakPriceSinceEntry {
		t.PeakPriceSinceEntry = priceFiat
	}

	if floorFiat > 0 && priceFiat <= floorFiat {
		if t.LowPriceSince.IsZero() {
			t.LowPriceSince = now
		}
	} else {
		t.LowPriceSince = time.Time{}
	}
}

// Evaluate inspects a token snapshot and decides what, if anything,
// should happen this tick. It never mutates the snapshot.
func Evaluate(t *domain.MonitoredToken, cfg RemovalConfig, now time.Time) Decision {
	if removal := evaluateRemoval(t, cfg, now); removal != nil {
		return Decision{Removal: removal}
	}

	if t.PositionOpen {
		if exit := evaluateExit(t, now); exit != nil {
			return Decision{Trade: exit}
		}
		return Decision{}
	}

	if entry := evaluateEntry(t); entry != nil {
		return Decision{Trade: entry}
	}
	return Decision{}
}

// evaluateExit walks the exit conditions in fixed priority order and
// returns the first that holds.
func evaluateExit(t *domain.MonitoredToken, now time.Time) *TradeIntent {
	price := t.CurrentPriceFiat
	params := t.Params

	if !t.HasSoldHalf && price >= t.BuyPriceFiat*(1+params.FirstSellPct) {
		return &TradeIntent{Side: domain.TradeSideSell, Mode: domain.SellHalf, Reason: domain.ExitReasonFirstTarget}
	}
	if price >= t.BuyPriceFiat*(1+params.SecondSellPct) {
		return &TradeIntent{Side: domain.TradeSideSell, Mode: domain.SellAll, Reason: domain.ExitReasonSecondTarget}
	}
	if price <= t.PeakPriceSinceEntry*(1-params.StopLossPct) {
		return &TradeIntent{Side: domain.TradeSideSell, Mode: domain.SellAll, Reason: domain.ExitReasonPeakStop}
	}
	if params.StagnationTimeout > 0 && now.Sub(t.LastPriceChangeAt) > params.StagnationTimeout {
		return &TradeIntent{Side: domain.TradeSideSell, Mode: domain.SellAll, Reason: domain.ExitReasonStagnation}
	}
	return nil
}

func evaluateEntry(t *domain.MonitoredToken) *TradeIntent {
	params := t.Params

	if params.MaxTradesPerToken > 0 && t.TradeCount >= params.MaxTradesPerToken {
		return nil
	}
	if t.HasCompletedFirstCycle && !params.ReentryEnabled {
		return nil
	}

	threshold := params.BuyThresholdFiat
	if t.HasCompletedFirstCycle && params.ReentryBuyThresholdFiat > 0 {
		threshold = params.ReentryBuyThresholdFiat
	}

	if t.CurrentPriceFiat < threshold {
		return nil
	}
	// Never re-buy at or under the last sell price. Vacuous before the
	// first sell since LastSellPriceFiat starts at zero.
	if t.CurrentPriceFiat <= t.LastSellPriceFiat {
		return nil
	}

	return &TradeIntent{Side: domain.TradeSideBuy}
}

// evaluateRemoval applies the lifecycle rules that run independently of
// trading state.
func evaluateRemoval(t *domain.MonitoredToken, cfg RemovalConfig, now time.Time) *RemovalIntent {
	if cfg.InactiveTimeout > 0 && t.HasPriced() && now.Sub(t.LastPriceUpdateAt) > cfg.InactiveTimeout {
		return &RemovalIntent{Reason: domain.RemovalReasonInactive}
	}

	if !t.PositionOpen && t.HasCompletedFirstCycle {
		capReached := t.Params.MaxTradesPerToken > 0 && t.TradeCount >= t.Params.MaxTradesPerToken
		if !t.Params.ReentryEnabled || capReached {
			return &RemovalIntent{Reason: domain.RemovalReasonExhausted, MarkTraded: true}
		}
	}

	if cfg.LowPriceTimeout > 0 && !t.LowPriceSince.IsZero() && now.Sub(t.LowPriceSince) > cfg.LowPriceTimeout {
		return &RemovalIntent{Reason: domain.RemovalReasonLowPrice}
	}

	return nil
}
