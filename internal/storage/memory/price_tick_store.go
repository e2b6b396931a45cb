package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
)

// PriceTickStore is an in-memory implementation of storage.PriceTickStore.
type PriceTickStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceTick // keyed by (token_address, observed_at)
}

// NewPriceTickStore creates a new in-memory price tick store.
func NewPriceTickStore() *PriceTickStore {
	return &PriceTickStore{
		data: make(map[string]*domain.PriceTick),
	}
}

// tickKey generates a unique key for a price tick.
func tickKey(tokenAddress string, observedAtNs int64) string {
	return fmt.Sprintf("%s|%d", tokenAddress, observedAtNs)
}

// InsertBatch adds multiple ticks. Fails entire batch on duplicate.
func (s *PriceTickStore) InsertBatch(_ context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(ticks))

	// First pass: check for duplicates (existing + intra-batch)
	for _, tk := range ticks {
		if tk == nil || tk.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		key := tickKey(tk.TokenAddress, tk.ObservedAt.UnixNano())

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, tk := range ticks {
		key := tickKey(tk.TokenAddress, tk.ObservedAt.UnixNano())
		tickCopy := *tk
		s.data[key] = &tickCopy
	}

	return nil
}

// GetByToken retrieves all ticks for a token, ordered by observation time ASC.
func (s *PriceTickStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, tk := range s.data {
		if tk.TokenAddress == tokenAddress {
			tickCopy := *tk
			result = append(result, &tickCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt.Before(result[j].ObservedAt)
	})

	return result, nil
}

var _ storage.PriceTickStore = (*PriceTickStore)(nil)
