package domain

import "time"

// TradingPattern classifies token-creation transactions by the gas they
// were sent with. Patterns are loaded once at startup and treated as
// read-only; lower Priority wins when several patterns match.
type TradingPattern struct {
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`

	// Inclusive gas ranges the creation transaction must fall into.
	GasPriceMinGwei float64 `json:"gasPriceMinGwei"`
	GasPriceMaxGwei float64 `json:"gasPriceMaxGwei"`
	GasLimitMin     uint64  `json:"gasLimitMin"`
	GasLimitMax     uint64  `json:"gasLimitMax"`

	Params TradingParams `json:"params"`
}

// Matches reports whether the event's observed gas values fall inside
// both of the pattern's ranges.
func (p *TradingPattern) Matches(ev *TokenCreationEvent) bool {
	if ev.GasPriceGwei < p.GasPriceMinGwei || ev.GasPriceGwei > p.GasPriceMaxGwei {
		return false
	}
	if ev.GasLimit < p.GasLimitMin || ev.GasLimit > p.GasLimitMax {
		return false
	}
	return true
}

// TradingParams is the per-pattern trading-parameter bundle. Zero fields
// are filled from the configuration defaults when patterns are loaded.
type TradingParams struct {
	// Entry thresholds in fiat. ReentryBuyThresholdFiat applies once a
	// token has completed its first full buy/sell cycle.
	BuyThresholdFiat        float64 `json:"buyThresholdFiat"`
	ReentryBuyThresholdFiat float64 `json:"reentryBuyThresholdFiat"`
	BuyAmountFiat           float64 `json:"buyAmountFiat"`

	// Exit percentages, as fractions (0.20 = +20%).
	FirstSellPct  float64 `json:"firstSellPct"`
	SecondSellPct float64 `json:"secondSellPct"`
	StopLossPct   float64 `json:"stopLossPct"` // drop from peak

	// A price move below this fraction counts as noise and does not
	// advance LastPriceChangeAt.
	NoiseThresholdPct float64 `json:"noiseThresholdPct"`

	StagnationTimeout time.Duration `json:"stagnationTimeout"`
	SellCooldown      time.Duration `json:"sellCooldown"`

	MaxTradesPerToken int  `json:"maxTradesPerToken"`
	ReentryEnabled    bool `json:"reentryEnabled"`
}
