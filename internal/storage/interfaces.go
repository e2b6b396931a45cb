// Package storage defines the persistence contracts for the trade
// journal and the price tick history. The registry itself is never
// persisted; these stores are audit surfaces, not recovery state.
package storage

import (
	"context"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// TradeJournal is an append-only log of reconciled trade attempts.
type TradeJournal interface {
	// Insert appends a trade record. Returns ErrDuplicateKey if the
	// record ID already exists.
	Insert(ctx context.Context, rec *domain.TradeRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if
	// it does not exist.
	GetByID(ctx context.Context, id string) (*domain.TradeRecord, error)

	// GetByToken retrieves all records for a token, ordered by
	// execution time ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TradeRecord, error)
}

// PriceTickStore holds observed price points for offline analysis.
type PriceTickStore interface {
	// InsertBatch appends a batch of ticks.
	InsertBatch(ctx context.Context, ticks []*domain.PriceTick) error

	// GetByToken retrieves all ticks for a token, ordered by
	// observation time ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.PriceTick, error)
}
