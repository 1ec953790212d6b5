package database

import (
	"context"
	"time"

	"accounts-api/internal/logging"
)

const (
	// DefaultRetryDelay is how long the waiter pauses between probe attempts.
	DefaultRetryDelay = 1 * time.Second

	// DefaultProbeTimeout bounds a single probe attempt so a hung connection
	// cannot stall the retry loop.
	DefaultProbeTimeout = 3 * time.Second
)

// Pinger is the minimal connection surface the waiter probes. *sql.DB and
// *bun.DB both satisfy it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ProbeFunc reports whether the database is ready to accept queries. A nil
// return means ready; any error means not ready yet. The waiter treats every
// error the same way, whatever layer it came from: a refused connection and a
// server that is still starting up are both just "not ready".
type ProbeFunc func(ctx context.Context) error

// PingProbe returns a probe that pings the given connection, bounding each
// attempt with the timeout.
func PingProbe(db Pinger, timeout time.Duration) ProbeFunc {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// Waiter blocks until a database probe succeeds. It retries indefinitely with
// a fixed delay; cancel the context to stop waiting.
type Waiter struct {
	Probe ProbeFunc
	Delay time.Duration

	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a waiter with the default retry delay.
func NewWaiter(probe ProbeFunc, logger *logging.Logger) *Waiter {
	return &Waiter{
		Probe:  probe,
		Delay:  DefaultRetryDelay,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Wait probes the database until it responds, sleeping between attempts.
// There is no attempt limit: a database that never comes up keeps the caller
// blocked until the context is canceled, which is the supervisor's decision
// to make, not ours. Returns nil once the database is ready, or the context
// error if waiting was called off.
func (w *Waiter) Wait(ctx context.Context) error {
	w.logger.Info("waiting for database")

	for attempt := 1; ; attempt++ {
		err := w.Probe(ctx)
		if err == nil {
			w.logger.Info("database available", "attempts", attempt)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.logger.Info("database unavailable, retrying",
			"attempt", attempt,
			"delay", w.Delay.String(),
			"error", err.Error(),
		)

		if err := w.sleep(ctx, w.Delay); err != nil {
			return err
		}
	}
}

// sleepContext pauses for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
