package ledger

import (
	"context"
	"sync"

	"rdxflow/internal/models"
)

// Store is the append-only historical ledger of InstrumentSummary rows keyed
// by (ticker, expiry, trade date). Appending an existing key overwrites it:
// last write wins, which is what re-uploading a corrected bhavcopy should do.
type Store interface {
	Append(ctx context.Context, tradeDate string, summaries []models.InstrumentSummary) error
	ReadDate(ctx context.Context, tradeDate string) ([]models.InstrumentSummary, error)
	Close() error
}

// Memory is the in-process Store used by tests and as the dashboard default
// when no external ledger is configured.
type Memory struct {
	mu    sync.RWMutex
	dates map[string]*dateBucket
}

type dateBucket struct {
	order []string
	rows  map[string]models.InstrumentSummary
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{dates: make(map[string]*dateBucket)}
}

// Append upserts the summaries under the trade date, preserving first-insert
// order for read-back.
func (m *Memory) Append(_ context.Context, tradeDate string, summaries []models.InstrumentSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.dates[tradeDate]
	if !ok {
		bucket = &dateBucket{rows: make(map[string]models.InstrumentSummary)}
		m.dates[tradeDate] = bucket
	}
	for _, s := range summaries {
		key := s.Key()
		if _, exists := bucket.rows[key]; !exists {
			bucket.order = append(bucket.order, key)
		}
		bucket.rows[key] = s
	}
	return nil
}

// ReadDate returns every summary stored for the trade date in first-insert
// order. An unknown date yields an empty slice, not an error.
func (m *Memory) ReadDate(_ context.Context, tradeDate string) ([]models.InstrumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket, ok := m.dates[tradeDate]
	if !ok {
		return []models.InstrumentSummary{}, nil
	}
	out := make([]models.InstrumentSummary, 0, len(bucket.order))
	for _, key := range bucket.order {
		out = append(out, bucket.rows[key])
	}
	return out, nil
}

// Close is a no-op for the in-memory ledger.
func (m *Memory) Close() error { return nil }
