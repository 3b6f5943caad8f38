package queue

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/stitchgo/blobstore"
)

// DefaultInbox is the name prefix BlobQueue reads from.
const DefaultInbox = "inbox/"

// stampLen is the width of the zero-padded UnixNano prefix written by Push.
const stampLen = 20

// BlobQueue is a Queue over the blobs below a prefix of a blobstore.Store.
//
// Pop takes the blob with the smallest name and deletes it. Push prefixes
// names with a zero-padded timestamp so pushed items pop in push order;
// blobs dropped into the inbox by other producers pop in name order.
// Priority is ignored.
//
// Several consumers may pop the same blob when they race; consumers are
// expected to deduplicate by item ID.
type BlobQueue struct {
	store  blobstore.Store
	prefix string
	now    func() time.Time
}

// NewBlobQueue creates a queue on the blobs below prefix. An empty prefix
// uses DefaultInbox.
func NewBlobQueue(store blobstore.Store, prefix string) *BlobQueue {
	if prefix == "" {
		prefix = DefaultInbox
	}
	return &BlobQueue{store: store, prefix: prefix, now: time.Now}
}

// Push writes item below the prefix. Items without ID or Name get a random
// ID and a ".json" name.
func (q *BlobQueue) Push(ctx context.Context, item Item) error {
	base := item.Name
	if base == "" {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		base = id + ".json"
	}
	if strings.Contains(base, "/") {
		return fmt.Errorf("queue: invalid name %q", base)
	}

	name := fmt.Sprintf("%s%0*d-%s", q.prefix, stampLen, q.now().UnixNano(), base)
	return q.store.Put(ctx, name, item.Data)
}

func (q *BlobQueue) Pop(ctx context.Context) (*Item, error) {
	names, err := q.store.List(ctx, q.prefix)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		data, err := q.store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				continue // taken by another consumer
			}
			return nil, err
		}
		if err := q.store.Delete(ctx, name); err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				continue
			}
			return nil, err
		}

		base := stripStamp(strings.TrimPrefix(name, q.prefix))
		return &Item{
			ID:   strings.TrimSuffix(path.Base(base), path.Ext(base)),
			Name: base,
			Data: data,
		}, nil
	}

	return nil, ErrEmpty
}

func stripStamp(base string) string {
	if len(base) <= stampLen+1 || base[stampLen] != '-' {
		return base
	}
	for i := 0; i < stampLen; i++ {
		if base[i] < '0' || base[i] > '9' {
			return base
		}
	}
	return base[stampLen+1:]
}
