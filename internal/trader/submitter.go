// Package trader serializes buy and sell intents per token, hands them
// to the order submitter and reconciles results back into the registry.
package trader

import (
	"context"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// Result is the outcome of one order submission. Reason carries the
// failure text when Success is false.
type Result struct {
	Success   bool
	Reference string
	Reason    string
}

// OrderSubmitter places orders with the outside world. Retries and
// backoff are its responsibility; callers only see the final outcome.
type OrderSubmitter interface {
	SubmitBuy(ctx context.Context, tokenAddress string, fiatAmountHint float64) Result
	SubmitSell(ctx context.Context, tokenAddress string, mode domain.SellMode) Result
}
