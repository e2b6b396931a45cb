package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
)

// TradeJournal is an in-memory implementation of storage.TradeJournal.
type TradeJournal struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by record ID
}

// NewTradeJournal creates a new in-memory trade journal.
func NewTradeJournal() *TradeJournal {
	return &TradeJournal{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Insert appends a trade record. Returns ErrDuplicateKey if the ID exists.
func (s *TradeJournal) Insert(_ context.Context, rec *domain.TradeRecord) error {
	if rec == nil || rec.ID == "" || rec.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *rec
	s.data[rec.ID] = &copy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TradeJournal) GetByID(_ context.Context, id string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *rec
	return &copy, nil
}

// GetByToken retrieves all records for a token, ordered by execution time ASC.
func (s *TradeJournal) GetByToken(_ context.Context, tokenAddress string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, rec := range s.data {
		if rec.TokenAddress == tokenAddress {
			copy := *rec
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt.Before(result[j].ExecutedAt)
	})

	return result, nil
}

var _ storage.TradeJournal = (*TradeJournal)(nil)
