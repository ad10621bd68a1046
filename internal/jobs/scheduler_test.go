package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunEveryTicksUntilStopped(t *testing.T) {
	s := NewScheduler()

	var runs atomic.Int32
	s.RunEvery("tick", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	time.Sleep(120 * time.Millisecond)
	s.Stop()

	stopped := runs.Load()
	require.GreaterOrEqual(t, stopped, int32(2))

	// No further runs after Stop returns.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, runs.Load())
}

func TestRunEverySurvivesErrorsAndPanics(t *testing.T) {
	s := NewScheduler()

	var runs atomic.Int32
	s.RunEvery("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		n := runs.Add(1)
		if n%2 == 0 {
			panic("boom")
		}
		return errors.New("transient")
	})

	time.Sleep(120 * time.Millisecond)
	s.Stop()

	require.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestStopWithoutJobs(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestUntilNext(t *testing.T) {
	base := time.Date(2025, 6, 10, 6, 30, 0, 0, time.UTC)

	// Later today.
	require.Equal(t, 90*time.Minute, untilNext(base, 8))

	// Already past this hour, so tomorrow.
	require.Equal(t, 21*time.Hour+30*time.Minute, untilNext(base, 4))

	// Exactly on the boundary rolls to the next day.
	onTheHour := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	require.Equal(t, 24*time.Hour, untilNext(onTheHour, 8))
}
