package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts-api/internal/logging"
)

var _ Pinger = (*sql.DB)(nil)

// probeScript returns a probe that replays the given results in order and
// counts how many times it was called.
func probeScript(calls *int, results ...error) ProbeFunc {
	return func(ctx context.Context) error {
		i := *calls
		*calls++
		if i >= len(results) {
			return nil
		}
		return results[i]
	}
}

func TestWaitRetriesUntilReady(t *testing.T) {
	// Two different failure layers: the driver cannot reach the host at all,
	// then the server answers but is not ready yet. The waiter must treat
	// them identically and keep going.
	errDial := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	errStarting := errors.New("pq: the database system is starting up")

	calls := 0
	w := NewWaiter(probeScript(&calls,
		errDial, errDial,
		errStarting, errStarting, errStarting,
	), logging.NewNop())

	var sleeps []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	err := w.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, calls, "five failures then one success")
	require.Len(t, sleeps, 5, "one sleep after each failure, none after success")
	for _, d := range sleeps {
		assert.Equal(t, DefaultRetryDelay, d)
	}
}

func TestWaitImmediateSuccess(t *testing.T) {
	calls := 0
	w := NewWaiter(probeScript(&calls), logging.NewNop())

	slept := false
	w.sleep = func(ctx context.Context, d time.Duration) error {
		slept = true
		return nil
	}

	err := w.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, slept, "no delay before the first attempt or after success")
}

func TestWaitStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	w := NewWaiter(func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return errors.New("connection refused")
	}, logging.NewNop())
	w.Delay = time.Millisecond

	err := w.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls, "no further attempts after cancellation")
}

func TestWaitUsesConfiguredDelay(t *testing.T) {
	calls := 0
	w := NewWaiter(probeScript(&calls, errors.New("not yet")), logging.NewNop())
	w.Delay = 250 * time.Millisecond

	var sleeps []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	require.NoError(t, w.Wait(context.Background()))
	require.Len(t, sleeps, 1)
	assert.Equal(t, 250*time.Millisecond, sleeps[0])
}

func TestPingProbe(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	probe := PingProbe(db, time.Second)

	require.Error(t, probe(context.Background()))
	require.NoError(t, probe(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSleepContextHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
