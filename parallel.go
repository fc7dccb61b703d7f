package mpexplain

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// parallelFor calls fn for every i in [0, n) using up to workers goroutines.
// Each worker handles a contiguous range of indices, so callers that write
// fn's result to position i need no synchronization and get results in
// index order. The context is checked before every call; the first error
// (or the context's error) stops the remaining work and is returned.
func parallelFor(ctx context.Context, n, workers int, fn func(i int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	workers = max(1, min(workers, n))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	perWorker := (n + workers - 1) / workers
	for start := 0; start < n; start += perWorker {
		end := min(start+perWorker, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Report the caller's cancellation rather than the derived context's.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// ProgressFunc receives the number of completed units of work and the total
// after every unit. It is called from worker goroutines and must be safe for
// concurrent use. It never influences results.
type ProgressFunc func(done, total int)

type progressTracker struct {
	fn    ProgressFunc
	total int
	done  atomic.Int64
}

func newProgressTracker(fn ProgressFunc, total int) *progressTracker {
	return &progressTracker{fn: fn, total: total}
}

func (p *progressTracker) tick() {
	if p.fn == nil {
		return
	}
	p.fn(int(p.done.Add(1)), p.total)
}
