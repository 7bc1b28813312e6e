package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func TestSchedulerRunsOnStartAndEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)
	var count atomic.Int32

	s := New("test", 30*time.Minute, func(ctx context.Context) error {
		count.Add(1)
		runs <- struct{}{}
		return nil
	}, clock, nopLogger{})
	require.NoError(t, s.Init())

	go s.Run(context.Background())
	defer s.Stop()

	waitRun(t, runs)
	require.EqualValues(t, 1, count.Load())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(29 * time.Minute)
	select {
	case <-runs:
		t.Fatal("task fired before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	waitRun(t, runs)
	clock.Advance(30 * time.Minute)
	waitRun(t, runs)
	require.EqualValues(t, 3, count.Load())
}

func TestSchedulerKeepsRunningAfterTaskError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runs := make(chan struct{}, 10)

	s := New("failing", time.Minute, func(ctx context.Context) error {
		runs <- struct{}{}
		return errors.New("boom")
	}, clock, nopLogger{})
	require.NoError(t, s.Init())

	go s.Run(context.Background())
	defer s.Stop()

	waitRun(t, runs)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(time.Minute)
	waitRun(t, runs)
}

func TestSchedulerStopWaitsForLoop(t *testing.T) {
	s := New("stop", time.Minute, func(ctx context.Context) error { return nil }, clockwork.NewFakeClock(), nopLogger{})
	require.NoError(t, s.Init())

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		s.Run(context.Background())
		close(finished)
	}()
	<-started

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cancel != nil
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestSchedulerInitRejectsBadConfig(t *testing.T) {
	require.Error(t, New("zero", 0, func(context.Context) error { return nil }, nil, nopLogger{}).Init())
	require.Error(t, New("nil", time.Second, nil, nil, nopLogger{}).Init())
}

func waitRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}
