package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
	"github.com/BlueGuider/Price-Based-Bot/internal/storage"
)

func TestPriceTickStore_InsertBatchAndGet(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	base := time.Now().UTC()
	ticks := []*domain.PriceTick{
		{TokenAddress: "0xaaa", PriceFiat: 0.001, ChangePct: 0, ObservedAt: base},
		{TokenAddress: "0xaaa", PriceFiat: 0.0012, ChangePct: 20, ObservedAt: base.Add(time.Second)},
	}

	if err := store.InsertBatch(ctx, ticks); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	result, err := store.GetByToken(ctx, "0xaaa")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 ticks, got %d", len(result))
	}
}

func TestPriceTickStore_DuplicateKey(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	ticks := []*domain.PriceTick{
		{TokenAddress: "0xaaa", PriceFiat: 0.001, ObservedAt: time.Unix(0, 1000)},
	}

	if err := store.InsertBatch(ctx, ticks); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBatch(ctx, ticks)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPriceTickStore_IntraBatchDuplicate(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	at := time.Unix(0, 1000)
	ticks := []*domain.PriceTick{
		{TokenAddress: "0xaaa", PriceFiat: 0.001, ObservedAt: at},
		{TokenAddress: "0xaaa", PriceFiat: 0.002, ObservedAt: at}, // duplicate key
	}

	err := store.InsertBatch(ctx, ticks)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	// Verify nothing was inserted
	result, _ := store.GetByToken(ctx, "0xaaa")
	if len(result) != 0 {
		t.Errorf("Expected 0 ticks (rollback), got %d", len(result))
	}
}

func TestPriceTickStore_OrderByObservedAt(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	base := time.Now().UTC()
	ticks := []*domain.PriceTick{
		{TokenAddress: "0xaaa", PriceFiat: 1.2, ObservedAt: base.Add(2 * time.Second)},
		{TokenAddress: "0xaaa", PriceFiat: 1.0, ObservedAt: base},
		{TokenAddress: "0xaaa", PriceFiat: 1.1, ObservedAt: base.Add(time.Second)},
	}

	if err := store.InsertBatch(ctx, ticks); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	result, _ := store.GetByToken(ctx, "0xaaa")

	for i := 1; i < len(result); i++ {
		if result[i].ObservedAt.Before(result[i-1].ObservedAt) {
			t.Errorf("Results not ordered at index %d", i)
		}
	}
}

func TestPriceTickStore_InvalidInput(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	err := store.InsertBatch(ctx, []*domain.PriceTick{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil tick, got %v", err)
	}

	err = store.InsertBatch(ctx, []*domain.PriceTick{{TokenAddress: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty token address, got %v", err)
	}
}

func TestPriceTickStore_EmptyBatch(t *testing.T) {
	store := NewPriceTickStore()
	ctx := context.Background()

	if err := store.InsertBatch(ctx, []*domain.PriceTick{}); err != nil {
		t.Errorf("Empty batch should succeed, got %v", err)
	}
}
