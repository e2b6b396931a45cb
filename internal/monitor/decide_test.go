package monitor

import (
	"testing"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

func testParams() domain.TradingParams {
	return domain.TradingParams{
		BuyThresholdFiat:        0.00003,
		ReentryBuyThresholdFiat: 0.00005,
		BuyAmountFiat:           5,
		FirstSellPct:            0.20,
		SecondSellPct:           0.50,
		StopLossPct:             0.15,
		NoiseThresholdPct:       0.01,
		StagnationTimeout:       5 * time.Minute,
		SellCooldown:            30 * time.Second,
		MaxTradesPerToken:       3,
		ReentryEnabled:          true,
	}
}

func testRemovalConfig() RemovalConfig {
	return RemovalConfig{
		InactiveTimeout:   10 * time.Minute,
		LowPriceFloorFiat: 0.000001,
		LowPriceTimeout:   15 * time.Minute,
	}
}

func newToken(price float64, now time.Time) *domain.MonitoredToken {
	return &domain.MonitoredToken{
		Address:           "0xaaa",
		CurrentPriceFiat:  price,
		PreviousPriceFiat: price,
		LastPriceUpdateAt: now,
		LastPriceChangeAt: now,
		Params:            testParams(),
	}
}

func openPosition(t *domain.MonitoredToken, buyPrice float64, at time.Time) {
	t.PositionOpen = true
	t.BuyPriceFiat = buyPrice
	t.BuyTime = at
	t.PeakPriceSinceEntry = buyPrice
	t.HasSoldHalf = false
}

func TestEvaluate_NoBuyBelowThreshold(t *testing.T) {
	now := time.Now()
	token := newToken(0.00001, now)

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade != nil || d.Removal != nil {
		t.Fatalf("Expected no action at price below threshold, got %+v", d)
	}
}

func TestEvaluate_BuyFiresAtThreshold(t *testing.T) {
	now := time.Now()
	token := newToken(0.00003, now)

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Side != domain.TradeSideBuy {
		t.Fatalf("Expected buy at threshold, got %+v", d)
	}
}

func TestEvaluate_BuyBlockedByLastSellPrice(t *testing.T) {
	now := time.Now()
	token := newToken(0.00004, now)
	token.LastSellPriceFiat = 0.00004

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade != nil {
		t.Fatalf("Expected no re-buy at or under last sell price, got %+v", d.Trade)
	}

	token.CurrentPriceFiat = 0.000041
	d = Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Side != domain.TradeSideBuy {
		t.Fatalf("Expected buy above last sell price, got %+v", d)
	}
}

func TestEvaluate_BuyBlockedByTradeCap(t *testing.T) {
	now := time.Now()
	token := newToken(0.0001, now)
	token.TradeCount = 3

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade != nil {
		t.Fatalf("Expected no buy at trade cap, got %+v", d.Trade)
	}
}

func TestEvaluate_ReentryThresholdApplies(t *testing.T) {
	now := time.Now()
	token := newToken(0.00004, now)
	token.HasCompletedFirstCycle = true
	token.TradeCount = 1

	// 0.00004 clears the first-entry threshold but not the re-entry one.
	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade != nil {
		t.Fatalf("Expected no buy below re-entry threshold, got %+v", d.Trade)
	}

	token.CurrentPriceFiat = 0.00005
	d = Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Side != domain.TradeSideBuy {
		t.Fatalf("Expected re-entry buy at re-entry threshold, got %+v", d)
	}
}

func TestEvaluate_ReentryDisabledRemovesAfterCycle(t *testing.T) {
	now := time.Now()
	token := newToken(0.0001, now)
	token.HasCompletedFirstCycle = true
	token.TradeCount = 1
	token.Params.ReentryEnabled = false

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Removal == nil || d.Removal.Reason != domain.RemovalReasonExhausted {
		t.Fatalf("Expected exhaustion removal, got %+v", d)
	}
	if !d.Removal.MarkTraded {
		t.Error("Exhaustion removal must mark the token traded")
	}
	if d.Trade != nil {
		t.Error("Removal must suppress trading")
	}
}

func TestEvaluate_FirstTargetSellsHalf(t *testing.T) {
	now := time.Now()
	token := newToken(0.00006, now)
	openPosition(token, 0.00005, now)
	token.PeakPriceSinceEntry = 0.00006

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Side != domain.TradeSideSell {
		t.Fatalf("Expected sell at first target, got %+v", d)
	}
	if d.Trade.Mode != domain.SellHalf {
		t.Errorf("Expected half sell, got %s", d.Trade.Mode)
	}
	if d.Trade.Reason != domain.ExitReasonFirstTarget {
		t.Errorf("Expected FIRST_TARGET, got %s", d.Trade.Reason)
	}
}

func TestEvaluate_SecondTargetAfterHalfSellsAll(t *testing.T) {
	now := time.Now()
	token := newToken(0.000075, now)
	openPosition(token, 0.00005, now)
	token.HasSoldHalf = true
	token.PeakPriceSinceEntry = 0.000075

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Mode != domain.SellAll {
		t.Fatalf("Expected full sell at second target, got %+v", d)
	}
	if d.Trade.Reason != domain.ExitReasonSecondTarget {
		t.Errorf("Expected SECOND_TARGET, got %s", d.Trade.Reason)
	}
}

func TestEvaluate_SecondTargetBeatsStopLoss(t *testing.T) {
	now := time.Now()
	// Price is above the second target AND 15% below a huge peak; the
	// second target wins because it is evaluated first.
	token := newToken(0.00008, now)
	openPosition(token, 0.00005, now)
	token.HasSoldHalf = true
	token.PeakPriceSinceEntry = 0.0001

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Reason != domain.ExitReasonSecondTarget {
		t.Fatalf("Expected SECOND_TARGET to win over stop-loss, got %+v", d)
	}
}

func TestEvaluate_StopLossFromPeakAboveBuyPrice(t *testing.T) {
	now := time.Now()
	token := newToken(0.000102, now)
	openPosition(token, 0.0001, now)
	token.HasSoldHalf = true
	token.PeakPriceSinceEntry = 0.00012

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Reason != domain.ExitReasonPeakStop {
		t.Fatalf("Expected stop-loss from peak, got %+v", d)
	}
	if d.Trade.Mode != domain.SellAll {
		t.Errorf("Stop-loss must be a full exit, got %s", d.Trade.Mode)
	}
}

func TestEvaluate_StagnationExit(t *testing.T) {
	now := time.Now()
	token := newToken(0.00005, now)
	openPosition(token, 0.00005, now)
	token.HasSoldHalf = true
	token.LastPriceChangeAt = now.Add(-6 * time.Minute)

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Trade == nil || d.Trade.Reason != domain.ExitReasonStagnation {
		t.Fatalf("Expected stagnation exit, got %+v", d)
	}
	if d.Trade.Mode != domain.SellAll {
		t.Errorf("Stagnation must be a full exit, got %s", d.Trade.Mode)
	}
}

func TestEvaluate_InactivityRemovalIgnoresPosition(t *testing.T) {
	now := time.Now()
	token := newToken(0.00005, now)
	openPosition(token, 0.00005, now)
	token.LastPriceUpdateAt = now.Add(-11 * time.Minute)

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Removal == nil || d.Removal.Reason != domain.RemovalReasonInactive {
		t.Fatalf("Expected inactivity removal, got %+v", d)
	}
	if d.Removal.MarkTraded {
		t.Error("Inactivity removal must not mark the token traded")
	}
}

func TestEvaluate_LowPriceRemoval(t *testing.T) {
	now := time.Now()
	token := newToken(0.0000005, now)
	token.LowPriceSince = now.Add(-16 * time.Minute)

	d := Evaluate(token, testRemovalConfig(), now)
	if d.Removal == nil || d.Removal.Reason != domain.RemovalReasonLowPrice {
		t.Fatalf("Expected low-price removal, got %+v", d)
	}
}

func TestApplyPrice_NoiseDoesNotAdvanceChangeTime(t *testing.T) {
	base := time.Now().Add(-time.Minute)
	now := time.Now()
	token := newToken(0.0001, base)

	// +0.5% move, under the 1% noise threshold.
	ApplyPrice(token, 0.0001005, 0, now)

	if !token.LastPriceUpdateAt.Equal(now) {
		t.Error("LastPriceUpdateAt must advance on every successful read")
	}
	if !token.LastPriceChangeAt.Equal(base) {
		t.Error("LastPriceChangeAt must not advance on a noise move")
	}
	if token.PreviousPriceFiat != 0.0001 {
		t.Errorf("Expected previous 0.0001, got %g", token.PreviousPriceFiat)
	}
	if token.CurrentPriceFiat != 0.0001005 {
		t.Errorf("Expected current 0.0001005, got %g", token.CurrentPriceFiat)
	}
}

func TestApplyPrice_RealMoveAdvancesChangeTime(t *testing.T) {
	base := time.Now().Add(-time.Minute)
	now := time.Now()
	token := newToken(0.0001, base)

	ApplyPrice(token, 0.00012, 0, now)

	if !token.LastPriceChangeAt.Equal(now) {
		t.Error("LastPriceChangeAt must advance on a move beyond noise")
	}
	if token.PriceChangePercent < 19.9 || token.PriceChangePercent > 20.1 {
		t.Errorf("Expected ~20%% change, got %g", token.PriceChangePercent)
	}
}

func TestApplyPrice_PeakRatchet(t *testing.T) {
	now := time.Now()
	token := newToken(0.0001, now)
	openPosition(token, 0.0001, now)

	ApplyPrice(token, 0.00012, 0, now)
	if token.PeakPriceSinceEntry != 0.00012 {
		t.Errorf("Expected peak 0.00012, got %g", token.PeakPriceSinceEntry)
	}

	ApplyPrice(token, 0.00011, 0, now)
	if token.PeakPriceSinceEntry != 0.00012 {
		t.Errorf("Peak must not fall, got %g", token.PeakPriceSinceEntry)
	}
}

func TestApplyPrice_LowPriceAnchor(t *testing.T) {
	now := time.Now()
	token := newToken(0.0001, now)
	floor := 0.000001

	ApplyPrice(token, 0.0000005, floor, now)
	if token.LowPriceSince.IsZero() {
		t.Fatal("Expected low-price anchor to be set")
	}
	anchored := token.LowPriceSince

	later := now.Add(time.Minute)
	ApplyPrice(token, 0.0000006, floor, later)
	if !token.LowPriceSince.Equal(anchored) {
		t.Error("Anchor must hold while price stays under the floor")
	}

	ApplyPrice(token, 0.00001, floor, later)
	if !token.LowPriceSince.IsZero() {
		t.Error("Anchor must reset when price recovers above the floor")
	}
}
