// Package frame runs per-frame object updates on a fixed set of workers.
package frame

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool splits a frame's objects into contiguous batches, one per worker.
// Update returns only after every batch is done, so the caller may mutate
// the object list again afterwards. Batches run in no particular order.
type Pool struct {
	workers int
}

// NewPool returns a pool with n workers. n <= 0 uses GOMAXPROCS.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: n}
}

func (p *Pool) Workers() int {
	return p.workers
}

// Batch is the half-open index range [Start, End) given to one worker.
type Batch struct {
	Start, End int
}

// Batches partitions n objects into at most Workers contiguous ranges whose
// sizes differ by at most one.
func (p *Pool) Batches(n int) []Batch {
	if n <= 0 {
		return nil
	}
	workers := min(p.workers, n)
	size, extra := n/workers, n%workers
	out := make([]Batch, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, Batch{Start: start, End: end})
		start = end
	}
	return out
}

// Update calls fn for every object and waits for all workers. The first
// error cancels ctx for the remaining workers and is returned.
func Update[T any](ctx context.Context, p *Pool, objects []T, fn func(ctx context.Context, obj T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, b := range p.Batches(len(objects)) {
		batch := objects[b.Start:b.End]
		g.Go(func() error {
			for i, obj := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx, obj); err != nil {
					return fmt.Errorf("update object %d: %w", b.Start+i, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
