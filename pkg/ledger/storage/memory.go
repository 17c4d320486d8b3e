package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

// MemoryStore implements ledger.Store in memory. All data is lost when the
// process exits; it exists for tests and ephemeral runs.
//
// MemoryStore is thread-safe using sync.RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	closed  bool
	records []*ledger.UsageRecord
	periods map[string]*ledger.BudgetPeriod
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		periods: make(map[string]*ledger.BudgetPeriod),
	}
}

func periodKey(kind ledger.PeriodKind, start time.Time) string {
	return fmt.Sprintf("%s|%d", kind, start.UTC().UnixMilli())
}

// AppendUsage appends one usage record.
func (s *MemoryStore) AppendUsage(ctx context.Context, rec *ledger.UsageRecord) error {
	if rec == nil {
		return ledger.NewStorageError("append", fmt.Errorf("record cannot be nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ledger.NewStorageError("append", fmt.Errorf("store is closed"))
	}

	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

// SumCost returns the total cost of records inside w.
func (s *MemoryStore) SumCost(ctx context.Context, w ledger.Window) (pricing.MicroEUR, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum pricing.MicroEUR
	for _, rec := range s.records {
		if w.Contains(rec.Timestamp) {
			sum += rec.Cost
		}
	}
	return sum, nil
}

// SpentInWindows sums both windows under one lock acquisition.
func (s *MemoryStore) SpentInWindows(ctx context.Context, daily, monthly ledger.Window) (pricing.MicroEUR, pricing.MicroEUR, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d, m pricing.MicroEUR
	for _, rec := range s.records {
		if daily.Contains(rec.Timestamp) {
			d += rec.Cost
		}
		if monthly.Contains(rec.Timestamp) {
			m += rec.Cost
		}
	}
	return d, m, nil
}

// RecentUsage returns up to limit records, newest first.
func (s *MemoryStore) RecentUsage(ctx context.Context, limit int) ([]*ledger.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Reverse insertion order first so identical timestamps come back
	// newest-insert-first, like the SQLite store's rowid tiebreak.
	out := make([]*ledger.UsageRecord, len(s.records))
	for i, rec := range s.records {
		cp := *rec
		out[len(s.records)-1-i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetPeriod returns the period row for (kind, start), nil when absent.
func (s *MemoryStore) GetPeriod(ctx context.Context, kind ledger.PeriodKind, start time.Time) (*ledger.BudgetPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.periods[periodKey(kind, start)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// PutPeriod inserts or replaces a period row.
func (s *MemoryStore) PutPeriod(ctx context.Context, p *ledger.BudgetPeriod) error {
	if p == nil {
		return ledger.NewStorageError("put period", fmt.Errorf("period cannot be nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.periods[periodKey(p.Kind, p.Start)] = &cp
	return nil
}

// PruneUsageBefore deletes records older than cutoff.
func (s *MemoryStore) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff = cutoff.UTC()
	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
