// Package telemetry receives lifecycle events and counters from the
// core; rendering is left to whatever sink is wired in.
package telemetry

import (
	"fmt"
	"sync"
)

// Sink receives lifecycle events emitted by the scanner, the decision
// loop and the trade executor. Implementations must be cheap and must
// never block the caller.
type Sink interface {
	// TokenDiscovered is emitted when the scanner registers a token.
	TokenDiscovered(address, pattern string)

	// EntryTaken is emitted after a reconciled successful buy.
	EntryTaken(address string, priceFiat float64)

	// PartialExit is emitted after a reconciled half sell.
	PartialExit(address string, priceFiat float64)

	// FullExit is emitted after a reconciled full sell.
	FullExit(address string, priceFiat, profitFiat float64, reason string)

	// TokenRemoved is emitted when the registry drops a token.
	TokenRemoved(address, reason string)

	// OperationFailed is emitted for every failure the core swallows:
	// failed trades, unpriceable tokens, ledger hiccups.
	OperationFailed(address, op, reason string)

	// SetMonitored/SetTraded publish registry gauge values.
	SetMonitored(n int)
	SetTraded(n int)
}

// Nop is a Sink that discards everything. Used in tests.
type Nop struct{}

func (Nop) TokenDiscovered(string, string)            {}
func (Nop) EntryTaken(string, float64)                {}
func (Nop) PartialExit(string, float64)               {}
func (Nop) FullExit(string, float64, float64, string) {}
func (Nop) TokenRemoved(string, string)               {}
func (Nop) OperationFailed(string, string, string)    {}
func (Nop) SetMonitored(int)                          {}
func (Nop) SetTraded(int)                             {}

var _ Sink = Nop{}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) TokenDiscovered(address, pattern string) {
	for _, s := range m {
		s.TokenDiscovered(address, pattern)
	}
}

func (m Multi) EntryTaken(address string, priceFiat float64) {
	for _, s := range m {
		s.EntryTaken(address, priceFiat)
	}
}

func (m Multi) PartialExit(address string, priceFiat float64) {
	for _, s := range m {
		s.PartialExit(address, priceFiat)
	}
}

func (m Multi) FullExit(address string, priceFiat, profitFiat float64, reason string) {
	for _, s := range m {
		s.FullExit(address, priceFiat, profitFiat, reason)
	}
}

func (m Multi) TokenRemoved(address, reason string) {
	for _, s := range m {
		s.TokenRemoved(address, reason)
	}
}

func (m Multi) OperationFailed(address, op, reason string) {
	for _, s := range m {
		s.OperationFailed(address, op, reason)
	}
}

func (m Multi) SetMonitored(n int) {
	for _, s := range m {
		s.SetMonitored(n)
	}
}

func (m Multi) SetTraded(n int) {
	for _, s := range m {
		s.SetTraded(n)
	}
}

var _ Sink = Multi{}

// Aggregates is a Sink that keeps running totals for the status report.
type Aggregates struct {
	mu             sync.Mutex
	discovered     int
	buys           int
	partialSells   int
	fullSells      int
	removed        int
	failures       int
	realizedProfit float64
	monitored      int
	traded         int
}

// NewAggregates creates an empty aggregate tracker.
func NewAggregates() *Aggregates {
	return &Aggregates{}
}

func (a *Aggregates) TokenDiscovered(string, string) {
	a.mu.Lock()
	a.discovered++
	a.mu.Unlock()
}

func (a *Aggregates) EntryTaken(string, float64) {
	a.mu.Lock()
	a.buys++
	a.mu.Unlock()
}

func (a *Aggregates) PartialExit(string, float64) {
	a.mu.Lock()
	a.partialSells++
	a.mu.Unlock()
}

func (a *Aggregates) FullExit(_ string, _ float64, profitFiat float64, _ string) {
	a.mu.Lock()
	a.fullSells++
	a.realizedProfit += profitFiat
	a.mu.Unlock()
}

func (a *Aggregates) TokenRemoved(string, string) {
	a.mu.Lock()
	a.removed++
	a.mu.Unlock()
}

func (a *Aggregates) OperationFailed(string, string, string) {
	a.mu.Lock()
	a.failures++
	a.mu.Unlock()
}

func (a *Aggregates) SetMonitored(n int) {
	a.mu.Lock()
	a.monitored = n
	a.mu.Unlock()
}

func (a *Aggregates) SetTraded(n int) {
	a.mu.Lock()
	a.traded = n
	a.mu.Unlock()
}

// Summary renders one status line for the periodic report.
func (a *Aggregates) Summary() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf(
		"monitored=%d traded=%d discovered=%d buys=%d partial_sells=%d full_sells=%d removed=%d failures=%d realized_profit=%.6f",
		a.monitored, a.traded, a.discovered, a.buys, a.partialSells, a.fullSells, a.removed, a.failures, a.realizedProfit,
	)
}

var _ Sink = (*Aggregates)(nil)
