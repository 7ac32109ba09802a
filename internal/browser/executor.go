// Package browser is tier 4 of the fallback chain: driving the HR web UI
// through a headless browser when every API route is rejected. Sessions are
// slow and strictly one at a time.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// Driver performs one form-fill action in a browser session. It must exit
// deterministically: a nil error means the form was submitted and accepted,
// any other outcome is an error. There is no "unknown" result.
type Driver interface {
	Run(ctx context.Context, op model.Operation) error
}

// Executor serializes driver runs behind a global lock and bounds each run
// with a hard timeout. Only one browser session may exist at a time; a
// caller arriving while the lock is held queues behind it.
type Executor struct {
	mu      sync.Mutex
	driver  Driver
	timeout time.Duration
}

// NewExecutor wraps driver with the session lock. A non-positive timeout
// defaults to three minutes.
func NewExecutor(driver Driver, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Executor{driver: driver, timeout: timeout}
}

// Do runs one action through the browser. The lock is released on every
// exit path, including driver panics and the internal timeout.
func (e *Executor) Do(ctx context.Context, op model.Operation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	err := e.driver.Run(ctx, op)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("browser session timed out after %s: %w", elapsed.Round(time.Second), err)
		}
		return fmt.Errorf("browser form action failed: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("kind", string(op.Kind)).
		Dur("elapsed", elapsed).
		Msg("Browser form action completed")
	return nil
}
