package domain

import "time"

// SellMode selects how much of an open position a sell order unwinds.
type SellMode string

const (
	SellHalf SellMode = "half"
	SellAll  SellMode = "all"
)

// Trade side constants.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Exit reason codes, in evaluation priority order.
const (
	ExitReasonFirstTarget  = "FIRST_TARGET"
	ExitReasonSecondTarget = "SECOND_TARGET"
	ExitReasonPeakStop     = "PEAK_STOP"
	ExitReasonStagnation   = "STAGNATION"
)

// Removal reason codes.
const (
	RemovalReasonInactive  = "INACTIVE"
	RemovalReasonExhausted = "EXHAUSTED"
	RemovalReasonLowPrice  = "LOW_PRICE"
)

// TradeRecord is one reconciled buy or sell attempt, appended to the
// trade journal. Failed attempts are journaled too with Success=false.
type TradeRecord struct {
	ID           string // uuid
	TokenAddress string
	Side         string   // "buy" | "sell"
	Mode         SellMode // empty for buys
	PriceFiat    float64  // observed price at submission
	AmountFiat   float64  // fiat amount hint for buys, 0 for sells
	Reference    string   // submitter's transaction reference
	Success      bool
	Reason       string // exit reason for sells, error text on failure
	TradeCycle   int
	ExecutedAt   time.Time
}

// PriceTick is one observed price for one token, batched into the tick
// history store by the decision loop.
type PriceTick struct {
	TokenAddress string
	PriceFiat    float64
	ChangePct    float64
	ObservedAt   time.Time
}
