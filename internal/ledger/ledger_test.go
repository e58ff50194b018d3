package ledger

import (
	"context"
	"testing"

	"rdxflow/internal/models"
)

func entry(ticker, expiry string, futureOI float64) models.InstrumentSummary {
	return models.InstrumentSummary{Ticker: ticker, Expiry: expiry, FutureOI: futureOI}
}

func TestMemoryAppendAndReadDate(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	batch := []models.InstrumentSummary{
		entry("ABC", "2024-02-29", 1000),
		entry("XYZ", "2024-02-29", 250),
	}
	if err := store.Append(ctx, "2024-02-28", batch); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.ReadDate(ctx, "2024-02-28")
	if err != nil {
		t.Fatalf("ReadDate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Ticker != "ABC" || got[1].Ticker != "XYZ" {
		t.Fatalf("insertion order not preserved: %+v", got)
	}
}

func TestMemoryLastWriteWins(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.Append(ctx, "2024-02-28", []models.InstrumentSummary{entry("ABC", "e1", 100)}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "2024-02-28", []models.InstrumentSummary{entry("ABC", "e1", 999)}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.ReadDate(ctx, "2024-02-28")
	if err != nil {
		t.Fatalf("ReadDate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate key must not duplicate rows, got %d", len(got))
	}
	if got[0].FutureOI != 999 {
		t.Fatalf("expected last write to win, got %v", got[0].FutureOI)
	}
}

func TestMemoryDatesAreIndependent(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	store.Append(ctx, "2024-02-28", []models.InstrumentSummary{entry("ABC", "e1", 1)})
	store.Append(ctx, "2024-02-29", []models.InstrumentSummary{entry("ABC", "e1", 2)})

	first, _ := store.ReadDate(ctx, "2024-02-28")
	second, _ := store.ReadDate(ctx, "2024-02-29")
	if first[0].FutureOI != 1 || second[0].FutureOI != 2 {
		t.Fatalf("dates bled into each other: %v / %v", first, second)
	}
}

func TestMemoryUnknownDate(t *testing.T) {
	store := NewMemory()
	got, err := store.ReadDate(context.Background(), "1999-01-01")
	if err != nil {
		t.Fatalf("ReadDate: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(got))
	}
}
