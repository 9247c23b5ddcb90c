package driver_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/scarb/internal/engine/driver"
)

func succeed(context.Context) error { return nil }

func TestRunJobs_Diamond(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// A depends on B and C, both depend on D.
		bStarted := make(chan struct{})
		cStarted := make(chan struct{})
		bProceed := make(chan struct{})
		cProceed := make(chan struct{})

		specs := []driver.JobSpec{
			{ID: "A", Deps: []string{"B", "C"}, Run: func(context.Context) error {
				t.Error("A should not run")
				return nil
			}},
			{ID: "B", Deps: []string{"D"}, Run: func(context.Context) error {
				close(bStarted)
				<-bProceed
				return errors.New("B failed")
			}},
			{ID: "C", Deps: []string{"D"}, Run: func(context.Context) error {
				close(cStarted)
				<-cProceed
				return nil
			}},
			{ID: "D", Run: succeed},
		}

		type outcome struct {
			statuses map[string]driver.JobStatus
			err      error
		}
		done := make(chan outcome)
		go func() {
			statuses, err := driver.RunJobs(context.Background(), specs, 2)
			done <- outcome{statuses, err}
		}()

		<-bStarted
		<-cStarted
		close(bProceed)
		synctest.Wait()
		close(cProceed)

		res := <-done
		require.Error(t, res.err)
		assert.ErrorContains(t, res.err, "B failed")
		assert.Equal(t, map[string]driver.JobStatus{
			"A": driver.StatusSkipped,
			"B": driver.StatusFailed,
			"C": driver.StatusCompleted,
			"D": driver.StatusCompleted,
		}, res.statuses)
	})
}

func TestRunJobs_StopsAfterFirstFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var ran atomic.Bool
		statuses, err := driver.RunJobs(context.Background(), []driver.JobSpec{
			{ID: "first", Run: func(context.Context) error { return errors.New("boom") }},
			{ID: "second", Run: func(context.Context) error {
				ran.Store(true)
				return nil
			}},
		}, 1)

		require.Error(t, err)
		assert.False(t, ran.Load())
		assert.Equal(t, driver.StatusFailed, statuses["first"])
		assert.Equal(t, driver.StatusSkipped, statuses["second"])
	})
}

func TestRunJobs_RespectsParallelism(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var active, peak atomic.Int32
		work := func(context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Second)
			active.Add(-1)
			return nil
		}

		specs := []driver.JobSpec{{ID: "a", Run: work}, {ID: "b", Run: work}, {ID: "c", Run: work}, {ID: "d", Run: work}}
		start := time.Now()
		_, err := driver.RunJobs(context.Background(), specs, 2)

		require.NoError(t, err)
		assert.Equal(t, int32(2), peak.Load())
		assert.Equal(t, 2*time.Second, time.Since(start))
	})
}

func TestRunJobs_FreshJobsUnblockDependents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		statuses, err := driver.RunJobs(context.Background(), []driver.JobSpec{
			{ID: "lib", Run: func(context.Context) error { return driver.ErrFresh }},
			{ID: "test", Deps: []string{"lib"}, Run: succeed},
		}, 4)

		require.NoError(t, err)
		assert.Equal(t, driver.StatusFresh, statuses["lib"])
		assert.Equal(t, driver.StatusCompleted, statuses["test"])
	})
}

func TestRunJobs_Canceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		statuses, err := driver.RunJobs(ctx, []driver.JobSpec{{ID: "a", Run: succeed}}, 1)

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, driver.StatusSkipped, statuses["a"])
	})
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, "0.00s", driver.Elapsed(0))
	assert.Equal(t, "1.25s", driver.Elapsed(1250*time.Millisecond))
	assert.Equal(t, "3m 2s", driver.Elapsed(3*time.Minute+2*time.Second))
}
