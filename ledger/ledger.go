// Package ledger records which work items have been processed.
//
// Begin claims an item id exactly once. A second Begin for the same id
// fails with ErrAlreadyProcessed, whatever the state of the first claim, so
// a redelivered item is never generated twice. Finish stores the outcome.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyProcessed is returned by Begin for an id that was claimed before.
	ErrAlreadyProcessed = errors.New("ledger: item already processed")
	// ErrNotFound is returned for ids without a record.
	ErrNotFound = errors.New("ledger: record not found")
)

// Status is the processing state of an item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDone     Status = "done"
	StatusPartial  Status = "partial"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Record is the ledger entry of one work item.
type Record struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Key        string    `json:"key,omitempty"`
	Rows       int       `json:"rows"`
	FailedRows int       `json:"failed_rows"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Ledger is the processing record store.
type Ledger interface {
	// Begin claims id with a pending record.
	Begin(ctx context.Context, id string) error
	// Finish replaces the record of rec.ID. The id must have been claimed.
	Finish(ctx context.Context, rec Record) error
	// Get returns the record of id.
	Get(ctx context.Context, id string) (Record, error)
}
