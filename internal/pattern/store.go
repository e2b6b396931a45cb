package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// filePattern is the on-disk schema for one pattern. Durations are plain
// seconds so the file stays hand-editable.
type filePattern struct {
	Name            string  `json:"name"`
	Enabled         bool    `json:"enabled"`
	Priority        int     `json:"priority"`
	GasPriceMinGwei float64 `json:"gasPriceMinGwei"`
	GasPriceMaxGwei float64 `json:"gasPriceMaxGwei"`
	GasLimitMin     uint64  `json:"gasLimitMin"`
	GasLimitMax     uint64  `json:"gasLimitMax"`

	Params fileParams `json:"params"`
}

type fileParams struct {
	BuyThresholdFiat        float64 `json:"buyThresholdFiat"`
	ReentryBuyThresholdFiat float64 `json:"reentryBuyThresholdFiat"`
	BuyAmountFiat           float64 `json:"buyAmountFiat"`
	FirstSellPct            float64 `json:"firstSellPct"`
	SecondSellPct           float64 `json:"secondSellPct"`
	StopLossPct             float64 `json:"stopLossPct"`
	NoiseThresholdPct       float64 `json:"noiseThresholdPct"`
	StagnationTimeoutSec    int64   `json:"stagnationTimeoutSec"`
	SellCooldownSec         int64   `json:"sellCooldownSec"`
	MaxTradesPerToken       int     `json:"maxTradesPerToken"`
	ReentryEnabled          *bool   `json:"reentryEnabled"`
}

// Load reads the pattern file and resolves each pattern's trading params
// against the configured defaults: zero fields inherit the default value.
// The returned list is read-only for the rest of the process.
func Load(path string, defaults domain.TradingParams) ([]domain.TradingPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern file: %w", err)
	}

	var raw []filePattern
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pattern file %s: %w", path, err)
	}

	patterns := make([]domain.TradingPattern, 0, len(raw))
	for i, fp := range raw {
		if fp.Name == "" {
			return nil, fmt.Errorf("pattern %d: name is required", i)
		}
		if fp.GasPriceMaxGwei < fp.GasPriceMinGwei {
			return nil, fmt.Errorf("pattern %q: gas price range inverted", fp.Name)
		}
		if fp.GasLimitMax < fp.GasLimitMin {
			return nil, fmt.Errorf("pattern %q: gas limit range inverted", fp.Name)
		}

		patterns = append(patterns, domain.TradingPattern{
			Name:            fp.Name,
			Enabled:         fp.Enabled,
			Priority:        fp.Priority,
			GasPriceMinGwei: fp.GasPriceMinGwei,
			GasPriceMaxGwei: fp.GasPriceMaxGwei,
			GasLimitMin:     fp.GasLimitMin,
			GasLimitMax:     fp.GasLimitMax,
			Params:          resolveParams(fp.Params, defaults),
		})
	}

	return patterns, nil
}

// resolveParams fills zero fields from the defaults bundle.
func resolveParams(fp fileParams, def domain.TradingParams) domain.TradingParams {
	p := domain.TradingParams{
		BuyThresholdFiat:        fp.BuyThresholdFiat,
		ReentryBuyThresholdFiat: fp.ReentryBuyThresholdFiat,
		BuyAmountFiat:           fp.BuyAmountFiat,
		FirstSellPct:            fp.FirstSellPct,
		SecondSellPct:           fp.SecondSellPct,
		StopLossPct:             fp.StopLossPct,
		NoiseThresholdPct:       fp.NoiseThresholdPct,
		StagnationTimeout:       time.Duration(fp.StagnationTimeoutSec) * time.Second,
		SellCooldown:            time.Duration(fp.SellCooldownSec) * time.Second,
		MaxTradesPerToken:       fp.MaxTradesPerToken,
		ReentryEnabled:          def.ReentryEnabled,
	}

	if p.BuyThresholdFiat == 0 {
		p.BuyThresholdFiat = def.BuyThresholdFiat
	}
	if p.ReentryBuyThresholdFiat == 0 {
		p.ReentryBuyThresholdFiat = def.ReentryBuyThresholdFiat
	}
	if p.BuyAmountFiat == 0 {
		p.BuyAmountFiat = def.BuyAmountFiat
	}
	if p.FirstSellPct == 0 {
		p.FirstSellPct = def.FirstSellPct
	}
	if p.SecondSellPct == 0 {
		p.SecondSellPct = def.SecondSellPct
	}
	if p.StopLossPct == 0 {
		p.StopLossPct = def.StopLossPct
	}
	if p.NoiseThresholdPct == 0 {
		p.NoiseThresholdPct = def.NoiseThresholdPct
	}
	if p.StagnationTimeout == 0 {
		p.StagnationTimeout = def.StagnationTimeout
	}
	if p.SellCooldown == 0 {
		p.SellCooldown = def.SellCooldown
	}
	if p.MaxTradesPerToken == 0 {
		p.MaxTradesPerToken = def.MaxTradesPerToken
	}
	if fp.ReentryEnabled != nil {
		p.ReentryEnabled = *fp.ReentryEnabled
	}

	return p
}
