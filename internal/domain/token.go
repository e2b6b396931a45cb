package domain

import "time"

// MonitoredToken is the registry's record for one tracked token.
// Owned by the registry; mutated by the scanner on insert and by the
// decision loop and trade executor afterwards.
type MonitoredToken struct {
	Address      string // canonical lowercase 0x-hex, unique key
	Creator      string
	CreationTime time.Time

	// Last two observed prices and the derived delta.
	CurrentPriceFiat   float64
	PreviousPriceFiat  float64
	PriceChangePercent float64
	LastPriceUpdateAt  time.Time
	LastPriceChangeAt  time.Time // only advances when the delta beats the noise threshold

	// Position state. PeakPriceSinceEntry is monotonically non-decreasing
	// while the position is open and resets to the buy price on (re-)entry.
	PositionOpen        bool
	BuyPriceFiat        float64
	BuyTime             time.Time
	PeakPriceSinceEntry float64
	HasSoldHalf         bool

	// Re-entry guard and sell cooldown anchor.
	LastSellPriceFiat float64
	LastSellAttemptAt time.Time

	// Re-entry bookkeeping.
	TradeCount             int
	TradeCycle             int
	HasCompletedFirstCycle bool

	// Anchor for timed removal when price stays at or under the floor.
	LowPriceSince time.Time

	// Classification. MatchedPattern is for display/statistics; Params is
	// the resolved trading-parameter bundle the decision loop runs against.
	MatchedPattern string
	Params         TradingParams
}

// HasPriced reports whether at least one price read succeeded.
func (t *MonitoredToken) HasPriced() bool {
	return !t.LastPriceUpdateAt.IsZero()
}
