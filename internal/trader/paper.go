package trader

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// PaperSubmitter fills every order in-process with a fabricated
// reference. Selected by testMode; no transaction ever leaves the
// process.
type PaperSubmitter struct {
	logger *log.Logger
}

// NewPaperSubmitter creates a PaperSubmitter.
func NewPaperSubmitter(logger *log.Logger) *PaperSubmitter {
	if logger == nil {
		logger = log.Default()
	}
	return &PaperSubmitter{logger: logger}
}

var _ OrderSubmitter = (*PaperSubmitter)(nil)

func (p *PaperSubmitter) SubmitBuy(_ context.Context, tokenAddress string, fiatAmountHint float64) Result {
	ref := "paper-" + uuid.NewString()
	p.logger.Printf("paper buy %s amount=%.2f ref=%s", tokenAddress, fiatAmountHint, ref)
	return Result{Success: true, Reference: ref}
}

func (p *PaperSubmitter) SubmitSell(_ context.Context, tokenAddress string, mode domain.SellMode) Result {
	ref := "paper-" + uuid.NewString()
	p.logger.Printf("paper sell %s mode=%s ref=%s", tokenAddress, mode, ref)
	return Result{Success: true, Reference: ref}
}
