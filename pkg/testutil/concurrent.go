// Package testutil holds helpers shared by unit and integration tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/sentinel"
)

// ConcurrentResult tallies the outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes   int32
	Conflicts   int32
	Transitions int32
	NotFounds   int32
	Errors      int32
}

// Total returns the number of calls that finished.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.Transitions + r.NotFounds + r.Errors
}

// RunConcurrent runs fn on n goroutines at once and sorts each result.
// Store sentinels and domain error codes land in the same buckets, so the
// helper works at both layers.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		res   [5]atomic.Int32
	)
	for i := range n {
		wg.Go(func() {
			<-start
			res[classify(fn(i))].Add(1)
		})
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:   res[0].Load(),
		Conflicts:   res[1].Load(),
		Transitions: res[2].Load(),
		NotFounds:   res[3].Load(),
		Errors:      res[4].Load(),
	}
}

// RunConcurrentCtx is RunConcurrent for functions that take a context.
func RunConcurrentCtx(ctx context.Context, n int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(n, func(idx int) error {
		return fn(ctx, idx)
	})
}

// RunConcurrentCollect runs fn on n goroutines and returns every error
// for callers that need more than the standard buckets.
func RunConcurrentCollect(n int, fn func(idx int) error) (int32, []error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes atomic.Int32
		errs      []error
	)
	for i := range n {
		wg.Go(func() {
			if err := fn(i); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			successes.Add(1)
		})
	}
	wg.Wait()
	return successes.Load(), errs
}

func classify(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeConflict):
		return 1
	case errors.Is(err, sentinel.ErrInvalidState), dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		return 2
	case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
		return 3
	default:
		return 4
	}
}
