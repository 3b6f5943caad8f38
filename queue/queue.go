// Package queue delivers work items, one serialized mesh payload each.
package queue

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrEmpty is returned by Pop when no item is pending.
var ErrEmpty = errors.New("queue: empty")

// Item is one unit of work.
type Item struct {
	// ID identifies the item across retries. It may be empty, in which
	// case the consumer assigns one.
	ID string
	// Name is the source name of the payload. Its extension selects the
	// payload codec.
	Name string
	// Data is the serialized payload.
	Data []byte
	// Priority orders items of a MemoryQueue; lower values pop first.
	Priority int
}

// Ext returns the extension of the item name without the dot.
func (it *Item) Ext() string {
	return strings.TrimPrefix(path.Ext(it.Name), ".")
}

// Queue is a source of work items.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Push enqueues an item.
	Push(ctx context.Context, item Item) error
	// Pop removes and returns the next item, or ErrEmpty.
	Pop(ctx context.Context) (*Item, error)
}
