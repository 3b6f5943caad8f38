// Package notify announces finished work items.
package notify

import (
	"context"

	"github.com/hupe1980/stitchgo/ledger"
)

// Event describes the outcome of one work item.
type Event struct {
	ID         string        `json:"id"`
	Key        string        `json:"key,omitempty"`
	Status     ledger.Status `json:"status"`
	Rows       int           `json:"rows"`
	FailedRows int           `json:"failed_rows"`
	Error      string        `json:"error,omitempty"`
}

// EventFromRecord builds the event of a finished ledger record.
func EventFromRecord(rec ledger.Record) Event {
	return Event{
		ID:         rec.ID,
		Key:        rec.Key,
		Status:     rec.Status,
		Rows:       rec.Rows,
		FailedRows: rec.FailedRows,
		Error:      rec.Error,
	}
}

// Notifier publishes events.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
