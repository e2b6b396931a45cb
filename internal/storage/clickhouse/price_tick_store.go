package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
)

// PriceTickStore implements storage.PriceTickStore using ClickHouse.
type PriceTickStore struct {
	conn *Conn
}

// NewPriceTickStore creates a new PriceTickStore.
func NewPriceTickStore(conn *Conn) *PriceTickStore {
	return &PriceTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// InsertBatch appends a batch of ticks. ClickHouse MergeTree does not
// enforce uniqueness, so duplicate ticks are accepted as-is.
func (s *PriceTickStore) InsertBatch(ctx context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	for _, tk := range ticks {
		if tk == nil || tk.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_ticks (
			token_address, observed_at, price_fiat, change_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tk := range ticks {
		err = batch.Append(
			tk.TokenAddress, tk.ObservedAt, tk.PriceFiat, tk.ChangePct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all ticks for a token, ordered by observation time ASC.
func (s *PriceTickStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.PriceTick, error) {
	query := `
		SELECT token_address, observed_at, price_fiat, change_pct
		FROM price_ticks
		WHERE token_address = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// GetByTimeRange retrieves ticks for a token within [start, end] (inclusive).
func (s *PriceTickStore) GetByTimeRange(ctx context.Context, tokenAddress string, start, end time.Time) ([]*domain.PriceTick, error) {
	query := `
		SELECT token_address, observed_at, price_fiat, change_pct
		FROM price_ticks
		WHERE token_address = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// chRows abstracts the driver row iterator for scanning helpers.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceTicks scans multiple rows.
func scanPriceTicks(rows chRows) ([]*domain.PriceTick, error) {
	var ticks []*domain.PriceTick

	for rows.Next() {
		var tk domain.PriceTick

		err := rows.Scan(
			&tk.TokenAddress, &tk.ObservedAt, &tk.PriceFiat, &tk.ChangePct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price tick row: %w", err)
		}

		ticks = append(ticks, &tk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price tick rows: %w", err)
	}

	return ticks, nil
}
