package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dataingest/ingest"
	"dataingest/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedRunner returns the scripted outcomes in order and repeats the last one.
type scriptedRunner struct {
	outcomes []ingest.Outcome
	calls    int
	onRun    func(call int)
}

func (r *scriptedRunner) Run(_ context.Context) ingest.Outcome {
	r.calls++
	if r.onRun != nil {
		r.onRun(r.calls)
	}
	i := min(r.calls, len(r.outcomes)) - 1
	outcome := r.outcomes[i]
	outcome.RunID = fmt.Sprintf("run-%d", r.calls)
	return outcome
}

func success() ingest.Outcome {
	return ingest.Outcome{Success: true}
}

func failure(err error) ingest.Outcome {
	return ingest.Outcome{Err: err}
}

// recordWaits replaces the sleep with a recorder that never blocks.
func recordWaits(s *Scheduler) *[]time.Duration {
	var waits []time.Duration
	s.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func TestRunDelays(t *testing.T) {
	runner := &scriptedRunner{outcomes: []ingest.Outcome{
		success(),
		failure(fmt.Errorf("%w: boom", ingest.ErrNetwork)),
		success(),
	}}
	s := New(runner, Options{Interval: 24 * time.Hour, RetryInterval: time.Hour, MaxRuns: 3}, utils.Nop())
	waits := recordWaits(s)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 3, runner.calls)
	// no wait after the last run
	assert.Equal(t, []time.Duration{24 * time.Hour, time.Hour}, *waits)
}

func TestRunDefaults(t *testing.T) {
	s := New(&scriptedRunner{outcomes: []ingest.Outcome{success()}}, Options{}, utils.Nop())
	assert.Equal(t, DefaultInterval, s.opts.Interval)
	assert.Equal(t, DefaultRetryInterval, s.opts.RetryInterval)
	assert.Equal(t, 0, s.opts.MaxRuns)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &scriptedRunner{outcomes: []ingest.Outcome{success()}, onRun: func(call int) {
		if call == 4 {
			cancel()
		}
	}}
	s := New(runner, Options{}, utils.Nop())
	waits := recordWaits(s)

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 4, runner.calls)
	assert.Len(t, *waits, 3)
}

func TestRunCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{outcomes: []ingest.Outcome{success()}}
	s := New(runner, Options{Interval: time.Hour}, utils.Nop())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("the scheduler did not stop after cancellation")
	}
	assert.Equal(t, 1, runner.calls)
}

func TestRunStopsOnFatalOutcome(t *testing.T) {
	parseErr := fmt.Errorf("%w: ragged record", ingest.ErrTableParse)
	runner := &scriptedRunner{outcomes: []ingest.Outcome{
		success(),
		{Err: parseErr, Fatal: true},
		success(),
	}}
	s := New(runner, Options{}, utils.Nop())
	waits := recordWaits(s)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ingest.ErrTableParse)
	assert.Equal(t, 2, runner.calls)
	assert.Len(t, *waits, 1)
}

func TestRunFailuresAreNotFatal(t *testing.T) {
	runner := &scriptedRunner{outcomes: []ingest.Outcome{
		failure(&ingest.StatusError{Code: 404, URL: "http://example.com/churn.zip"}),
		failure(fmt.Errorf("%w: zip: not a valid zip file", ingest.ErrBadArchive)),
		failure(fmt.Errorf("%w: read-only file system", ingest.ErrFilesystem)),
		failure(fmt.Errorf("%w: ragged record", ingest.ErrTableParse)),
	}}
	s := New(runner, Options{MaxRuns: 4, RetryInterval: time.Minute}, utils.Nop())
	waits := recordWaits(s)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 4, runner.calls)
	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute}, *waits)
}

func TestRunLogsActualDelay(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	runner := &scriptedRunner{outcomes: []ingest.Outcome{failure(errors.New("boom")), success()}}
	s := New(runner, Options{MaxRuns: 3, Interval: 6 * time.Hour, RetryInterval: 30 * time.Minute},
		utils.Wrap(zap.New(core)))
	recordWaits(s)

	require.NoError(t, s.Run(context.Background()))

	failed := logs.FilterMessage("Data download failed. Retrying after 30m0s.").All()
	require.Len(t, failed, 1)
	assert.Equal(t, 30*time.Minute, failed[0].ContextMap()["delay"])
	assert.Equal(t, "UnknownError", failed[0].ContextMap()["kind"])

	succeeded := logs.FilterMessage("Data download successful. Waiting for the next scheduled download.").All()
	require.Len(t, succeeded, 1)
	assert.Equal(t, 6*time.Hour, succeeded[0].ContextMap()["delay"])
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
