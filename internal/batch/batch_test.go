package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("%d", i), URL: fmt.Sprintf("https://s/p/%d", i)}
	}
	return jobs
}

func TestRunWavesDoNotOverlap(t *testing.T) {
	type span struct{ start, end time.Time }
	var mu sync.Mutex
	spans := make(map[string]span)

	fn := func(ctx context.Context, job Job) (string, error) {
		s := time.Now()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		spans[job.ID] = span{start: s, end: time.Now()}
		mu.Unlock()
		return "ok-" + job.ID, nil
	}

	var waves [][]Result[string]
	results, err := RunWithHook(context.Background(), makeJobs(12), 5, fn, func(wave int, rs []Result[string]) {
		waves = append(waves, rs)
	})
	require.NoError(t, err)
	require.Len(t, results, 12)
	require.Len(t, waves, 3)
	assert.Len(t, waves[0], 5)
	assert.Len(t, waves[1], 5)
	assert.Len(t, waves[2], 2)

	// Every job in wave 2 starts after every job in wave 1 ended.
	var wave1End time.Time
	for _, r := range waves[0] {
		if e := spans[r.Job.ID].end; e.After(wave1End) {
			wave1End = e
		}
	}
	for _, r := range waves[1] {
		assert.False(t, spans[r.Job.ID].start.Before(wave1End),
			"job %s started before the previous wave drained", r.Job.ID)
	}

	// Results come back in job order with outputs attached.
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("%d", i), r.Job.ID)
		assert.Equal(t, "ok-"+r.Job.ID, r.Output)
		assert.Greater(t, r.Duration, time.Duration(0))
	}
}

func TestRunFailureIsolation(t *testing.T) {
	boom := errors.New("render failed")
	fn := func(ctx context.Context, job Job) (string, error) {
		if job.ID == "3" {
			return "", boom
		}
		return "ok", nil
	}

	results, err := Run(context.Background(), makeJobs(6), 3, fn)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for _, r := range results {
		if r.Job.ID == "3" {
			assert.ErrorIs(t, r.Err, boom)
		} else {
			assert.NoError(t, r.Err)
			assert.Equal(t, "ok", r.Output)
		}
	}
}

func TestRunStopsBetweenWavesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	fn := func(ctx context.Context, job Job) (struct{}, error) {
		atomic.AddInt32(&calls, 1)
		return struct{}{}, nil
	}
	hook := func(wave int, rs []Result[struct{}]) {
		if wave == 1 {
			cancel()
		}
	}

	results, err := RunWithHook(ctx, makeJobs(9), 3, fn, hook)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 3)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRunZeroSizeFallsBackToSerial(t *testing.T) {
	results, err := Run(context.Background(), makeJobs(3), 0, func(ctx context.Context, job Job) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
