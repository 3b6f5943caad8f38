package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for solver working sets.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxSolves is the maximum number of row solves in flight.
	// If 0, defaults to 1.
	MaxSolves int64

	// PollInterval is the minimum spacing between queue polls.
	// If 0, polling is not paced.
	PollInterval time.Duration
}

// Controller manages solve concurrency, solver memory and poll pacing.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Solves
	solveSem *semaphore.Weighted

	// Polling
	pollLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxSolves <= 0 {
		cfg.MaxSolves = 1
	}

	c := &Controller{
		cfg:      cfg,
		solveSem: semaphore.NewWeighted(cfg.MaxSolves),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.PollInterval > 0 {
		c.pollLimiter = rate.NewLimiter(rate.Every(cfg.PollInterval), 1)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// MaxSolves returns the number of solve slots.
func (c *Controller) MaxSolves() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxSolves
}

// AcquireSolve reserves a solve slot, blocking while all slots are busy.
func (c *Controller) AcquireSolve(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.solveSem.Acquire(ctx, 1)
}

// TryAcquireSolve reserves a solve slot without blocking.
func (c *Controller) TryAcquireSolve() bool {
	if c == nil {
		return true
	}
	return c.solveSem.TryAcquire(1)
}

// ReleaseSolve releases a solve slot.
func (c *Controller) ReleaseSolve() {
	if c == nil {
		return
	}
	c.solveSem.Release(1)
}

// WaitPoll blocks until the next poll is allowed or ctx is done.
func (c *Controller) WaitPoll(ctx context.Context) error {
	if c == nil || c.pollLimiter == nil {
		return ctx.Err()
	}
	return c.pollLimiter.Wait(ctx)
}
