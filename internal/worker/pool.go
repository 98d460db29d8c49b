// Package worker bounds how many blocking jobs run at once.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const DefaultSize = 4

type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do waits for a free slot and runs fn in the calling goroutine. It returns
// ctx.Err() if the context ends before a slot frees up.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	defer func() {
		p.wg.Done()
		p.sem.Release(1)
	}()
	return fn(ctx)
}

// Go runs Do in a new goroutine. The returned channel yields its error once.
func (p *Pool) Go(ctx context.Context, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, fn)
	}()
	return done
}

// Wait blocks until every job that has acquired a slot has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
