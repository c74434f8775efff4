// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package concurrent bounds how many independent jobs run at once.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs jobs on at most workerCount goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool of workerCount workers; values below one mean one.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Size is the number of jobs the pool runs at once.
func (wp *WorkerPool) Size() int {
	return wp.workerCount
}

// RunEach calls fn for every index in [0, n) and returns the error of each
// call at its index. A failure never stops the other jobs; jobs that have not
// started when ctx is done report ctx.Err().
func (wp *WorkerPool) RunEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	if n <= 0 {
		return nil
	}

	errs := make([]error, n)
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
