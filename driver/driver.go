// Package driver runs a Generator against a work queue.
//
// For every item the driver decodes the mesh payload, claims the item id in
// the ledger, generates the pattern, stores it as an artifact, records the
// outcome and publishes a notification:
//
//	done      the pattern was generated and stored
//	partial   stored, but some rows failed to converge
//	rejected  the payload was not a valid mesh
//	failed    the pattern could not be produced or stored
//
// Items whose id was claimed before are skipped. An item that cannot be
// claimed because the ledger is unavailable is pushed back onto the queue.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/stitchgo"
	"github.com/hupe1980/stitchgo/artifact"
	"github.com/hupe1980/stitchgo/codec"
	"github.com/hupe1980/stitchgo/internal/resource"
	"github.com/hupe1980/stitchgo/ledger"
	"github.com/hupe1980/stitchgo/mesh"
	"github.com/hupe1980/stitchgo/notify"
	"github.com/hupe1980/stitchgo/queue"
)

// DefaultPollInterval is the back-off between polls of an empty queue.
const DefaultPollInterval = 2 * time.Second

// ErrRequeued is returned by ProcessOne when the item could not be claimed
// and was pushed back onto the queue.
var ErrRequeued = errors.New("driver: item requeued")

// maxErrorRows caps the row failures listed in a record's error text.
const maxErrorRows = 8

type options struct {
	codec        codec.Codec
	pollInterval time.Duration
	logger       *stitchgo.Logger
	metrics      stitchgo.MetricsCollector
	newID        func() string
}

// Option configures a Driver.
type Option func(*options)

// WithCodec sets the payload codec for items whose name has no known
// extension. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithPollInterval sets the back-off between polls of an empty queue.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *stitchgo.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets the collector receiving per-item metrics.
func WithMetricsCollector(mc stitchgo.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// Driver processes queue items with a Generator.
type Driver struct {
	gen       *stitchgo.Generator
	queue     queue.Queue
	artifacts *artifact.Store
	ledger    ledger.Ledger
	notifier  notify.Notifier

	opts options
	rc   *resource.Controller
}

// New creates a Driver. A nil ledger uses a MemoryLedger, a nil notifier
// discards events.
func New(gen *stitchgo.Generator, q queue.Queue, artifacts *artifact.Store, l ledger.Ledger, n notify.Notifier, optFns ...Option) (*Driver, error) {
	if gen == nil {
		return nil, errors.New("driver: generator is required")
	}
	if q == nil {
		return nil, errors.New("driver: queue is required")
	}
	if artifacts == nil {
		return nil, errors.New("driver: artifact store is required")
	}
	if l == nil {
		l = ledger.NewMemoryLedger()
	}
	if n == nil {
		n = notify.Noop{}
	}

	o := options{
		codec:        codec.Default,
		pollInterval: DefaultPollInterval,
		logger:       stitchgo.NoopLogger(),
		metrics:      stitchgo.NoopMetricsCollector{},
		newID:        uuid.NewString,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	if o.pollInterval <= 0 {
		o.pollInterval = DefaultPollInterval
	}
	if o.logger == nil {
		o.logger = stitchgo.NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = stitchgo.NoopMetricsCollector{}
	}

	return &Driver{
		gen:       gen,
		queue:     q,
		artifacts: artifacts,
		ledger:    l,
		notifier:  n,
		opts:      o,
		rc:        resource.NewController(resource.Config{PollInterval: o.pollInterval}),
	}, nil
}

// Run processes items until ctx is done and then returns ctx.Err().
// An empty queue is polled again after the poll interval. Item errors are
// logged and do not stop the loop.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, queue.ErrEmpty) {
				d.opts.logger.WarnContext(ctx, "queue pop failed", "error", err)
			}
			if err := d.rc.WaitPoll(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			continue
		}

		if _, err := d.ProcessOne(ctx, item); errors.Is(err, ErrRequeued) {
			if err := d.rc.WaitPoll(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}
	}
}

// Drain processes items until the queue is empty and returns the number of
// items taken from the queue. It stops with an ErrRequeued error when an item
// could not be claimed; that item stays queued and is not counted.
func (d *Driver) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		item, err := d.queue.Pop(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		_, err = d.ProcessOne(ctx, item)
		if errors.Is(err, ErrRequeued) {
			return n, err
		}
		n++
		if err := ctx.Err(); err != nil {
			return n, err
		}
	}
}

// ProcessOne processes a single item and returns its final ledger record.
//
// Rejected and partial items are not errors. An error is returned when the
// item was claimed before (ledger.ErrAlreadyProcessed), when it could not be
// claimed (ErrRequeued), when it failed, or when ctx ended during
// processing; a claimed item is always finished.
func (d *Driver) ProcessOne(ctx context.Context, item *queue.Item) (ledger.Record, error) {
	start := time.Now()

	var payload mesh.Payload
	decodeErr := d.codecFor(item).Unmarshal(item.Data, &payload)

	id := item.ID
	if id == "" {
		id = payload.ID
	}
	if id == "" {
		id = d.opts.newID()
	}
	logger := d.opts.logger.WithItem(id)

	if err := d.ledger.Begin(ctx, id); err != nil {
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			logger.InfoContext(ctx, "duplicate item skipped")
			return ledger.Record{}, err
		}
		logger.ErrorContext(ctx, "ledger claim failed", "error", err)
		return ledger.Record{}, d.requeue(ctx, logger, id, item, err)
	}

	rec := ledger.Record{ID: id}
	var procErr error

	if decodeErr != nil {
		rec.Status = ledger.StatusRejected
		rec.Error = fmt.Sprintf("decode payload: %v", decodeErr)
	} else {
		procErr = d.generate(ctx, logger, id, &payload, &rec)
	}

	// The claim must be released even when ctx ended.
	finishCtx := context.WithoutCancel(ctx)
	if err := d.ledger.Finish(finishCtx, rec); err != nil {
		procErr = errors.Join(procErr, fmt.Errorf("driver: finish %s: %w", id, err))
	}

	if err := d.notifier.Publish(finishCtx, notify.EventFromRecord(rec)); err != nil {
		logger.WarnContext(ctx, "notification failed", "error", err)
	}

	elapsed := time.Since(start)
	d.opts.metrics.RecordItem(string(rec.Status), elapsed)
	logger.LogItem(ctx, id, string(rec.Status), rec.Rows, rec.FailedRows, elapsed, procErr)

	return rec, procErr
}

func (d *Driver) generate(ctx context.Context, logger *stitchgo.Logger, id string, payload *mesh.Payload, rec *ledger.Record) error {
	res, err := d.gen.GeneratePayload(ctx, payload)
	if err != nil {
		rec.Error = err.Error()
		if stitchgo.IsInvalidInput(err) {
			rec.Status = ledger.StatusRejected
			return nil
		}
		rec.Status = ledger.StatusFailed
		return err
	}

	rec.Rows = len(res.Columns)
	rec.FailedRows = len(res.Failures)
	rec.Status = ledger.StatusDone
	if res.Partial() {
		rec.Status = ledger.StatusPartial
		rec.Error = failureSummary(res.Failures)
	}

	for _, col := range res.Columns {
		if col.Order != nil {
			logger.DebugContext(ctx, "row order", "row", col.Row, "order", col.Order)
		}
	}

	key, err := d.artifacts.Save(ctx, id, res.Pattern)
	if err != nil {
		rec.Status = ledger.StatusFailed
		rec.Error = err.Error()
		return fmt.Errorf("driver: save %s: %w", id, err)
	}
	rec.Key = key
	return nil
}

// requeue pushes an unclaimed item back onto the queue under its resolved id.
func (d *Driver) requeue(ctx context.Context, logger *stitchgo.Logger, id string, item *queue.Item, cause error) error {
	back := *item
	if back.ID == "" {
		back.ID = id
	}
	if err := d.queue.Push(context.WithoutCancel(ctx), back); err != nil {
		logger.ErrorContext(ctx, "requeue failed, item dropped", "error", err)
		return errors.Join(
			fmt.Errorf("driver: claim %s: %w", id, cause),
			fmt.Errorf("driver: requeue %s: %w", id, err),
		)
	}
	return fmt.Errorf("%w: claim %s: %w", ErrRequeued, id, cause)
}

func (d *Driver) codecFor(item *queue.Item) codec.Codec {
	if c, ok := codec.ByExtension(item.Ext()); ok {
		return c
	}
	return d.opts.codec
}

func failureSummary(failures []stitchgo.RowFailure) string {
	parts := make([]string, 0, min(len(failures), maxErrorRows)+1)
	for i, f := range failures {
		if i == maxErrorRows {
			parts = append(parts, fmt.Sprintf("and %d more", len(failures)-maxErrorRows))
			break
		}
		parts = append(parts, fmt.Sprintf("row %d: %v", f.Row, f.Err))
	}
	return strings.Join(parts, "; ")
}
