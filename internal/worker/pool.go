// Package worker bounds CPU-heavy work (CSV parsing, image composition) so it
// cannot starve the goroutines serving requests.
package worker

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool limits the number of concurrently running jobs
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a pool running at most n jobs at once. n <= 0 means GOMAXPROCS.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a slot is free, blocking the caller until fn returns. The
// context only bounds the wait for a slot; a running fn is never interrupted.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
