// Package pricing resolves token prices from the launch platform's
// on-chain state and caches the quote-asset fiat rate.
package pricing

import "errors"

var (
	// ErrNotLiquid is returned when the platform reports a non-positive
	// last-trade price for a token. The token stays monitored and is
	// retried on a later tick.
	ErrNotLiquid = errors.New("token not liquid or price unavailable")

	// ErrImplausiblePrice is returned when a resolved fiat price falls
	// outside the plausible band. The read is discarded, not stored.
	ErrImplausiblePrice = errors.New("price outside plausible fiat band")
)
