// Package batch runs jobs through a worker function in fixed-size waves:
// every job in a wave finishes before the next wave starts. The unlock flow
// needs this shape so progress can be persisted between waves.
package batch

import (
	"context"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

// Job is one unit of work.
type Job struct {
	ID  string
	URL string
}

// Result pairs a job with its outcome. One job failing never affects the
// rest of its wave.
type Result[T any] struct {
	Job      Job
	Output   T
	Err      error
	Duration time.Duration
}

// Hook is called after each wave completes, with the wave's ordinal
// (starting at 1) and its results in job order.
type Hook[T any] func(wave int, results []Result[T])

// Run processes jobs in waves of size, returning all results in job order.
func Run[T any](ctx context.Context, jobs []Job, size int, fn func(context.Context, Job) (T, error)) ([]Result[T], error) {
	return RunWithHook(ctx, jobs, size, fn, nil)
}

// RunWithHook is Run with a per-wave callback. The hook runs on the calling
// goroutine after the wave's workers have all returned. A cancelled context
// stops before the next wave; the wave in flight always drains.
func RunWithHook[T any](ctx context.Context, jobs []Job, size int, fn func(context.Context, Job) (T, error), hook Hook[T]) ([]Result[T], error) {
	if size <= 0 {
		size = 1
	}

	all := make([]Result[T], 0, len(jobs))
	wave := 0
	for start := 0; start < len(jobs); start += size {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		wave++

		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		chunk := jobs[start:end]
		results := make([]Result[T], len(chunk))

		swg := sizedwaitgroup.New(size)
		for i, job := range chunk {
			swg.Add()
			go func(i int, job Job) {
				defer swg.Done()
				begin := time.Now()
				out, err := fn(ctx, job)
				results[i] = Result[T]{
					Job:      job,
					Output:   out,
					Err:      err,
					Duration: time.Since(begin),
				}
			}(i, job)
		}
		swg.Wait()

		if hook != nil {
			hook(wave, results)
		}
		all = append(all, results...)
	}
	return all, nil
}
