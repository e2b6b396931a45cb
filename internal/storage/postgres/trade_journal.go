package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
)

// TradeJournal implements storage.TradeJournal using PostgreSQL.
type TradeJournal struct {
	pool *Pool
}

// NewTradeJournal creates a new TradeJournal.
func NewTradeJournal(pool *Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeJournal = (*TradeJournal)(nil)

// Insert appends a trade record. Returns ErrDuplicateKey if the ID exists.
func (s *TradeJournal) Insert(ctx context.Context, rec *domain.TradeRecord) error {
	if rec == nil || rec.ID == "" || rec.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (
			id, token_address, side, mode,
			price_fiat, amount_fiat, reference, success,
			reason, trade_cycle, executed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.TokenAddress, rec.Side, string(rec.Mode),
		rec.PriceFiat, rec.AmountFiat, rec.Reference, rec.Success,
		rec.Reason, rec.TradeCycle, rec.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TradeJournal) GetByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	query := `
		SELECT
			id, token_address, side, mode,
			price_fiat, amount_fiat, reference, success,
			reason, trade_cycle, executed_at
		FROM trade_records
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	rec, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return rec, nil
}

// GetByToken retrieves all records for a token, ordered by execution time ASC.
func (s *TradeJournal) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT
			id, token_address, side, mode,
			price_fiat, amount_fiat, reference, success,
			reason, trade_cycle, executed_at
		FROM trade_records
		WHERE token_address = $1
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trade records by token: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var rec domain.TradeRecord
	var mode string

	err := row.Scan(
		&rec.ID, &rec.TokenAddress, &rec.Side, &mode,
		&rec.PriceFiat, &rec.AmountFiat, &rec.Reference, &rec.Success,
		&rec.Reason, &rec.TradeCycle, &rec.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Mode = domain.SellMode(mode)
	return &rec, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var records []*domain.TradeRecord

	for rows.Next() {
		rec, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return records, nil
}
