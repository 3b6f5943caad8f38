// Package resource implements the Controller that governs row solves and
// queue polling.
//
// The Controller manages three resources:
//
//   - Solve slots: a weighted semaphore capping L-BFGS solves in flight,
//     shared by every Generate call that uses the same Controller.
//   - Memory: fail-fast accounting of solver working sets.
//   - Polling: a token bucket that paces an idle queue loop.
//
// # Solve Slots
//
//	rc := resource.NewController(resource.Config{MaxSolves: 4})
//
//	if err := rc.AcquireSolve(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseSolve()
//
// # Memory
//
// AcquireMemory returns ErrMemoryLimitExceeded immediately when the limit
// would be exceeded; the caller decides whether that fails the row.
//
// # Polling
//
//	rc := resource.NewController(resource.Config{PollInterval: 2 * time.Second})
//	for {
//	    if err := rc.WaitPoll(ctx); err != nil {
//	        return err
//	    }
//	    // pop
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller; they become no-ops.
package resource
