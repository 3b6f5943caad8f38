package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

func (l *MemoryLedger) Begin(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
	}
	l.records[id] = Record{ID: id, Status: StatusPending, StartedAt: l.now()}
	return nil
}

func (l *MemoryLedger) Finish(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.records[rec.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = prev.StartedAt
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = l.now()
	}
	l.records[rec.ID] = rec
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Len returns the number of records.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
