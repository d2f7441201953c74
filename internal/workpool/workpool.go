// Package workpool runs indexed jobs on a bounded number of goroutines.
package workpool

import (
	"context"
	"sync"
)

// Run calls fn for every index in [0, n) on at most workers goroutines and
// returns one error slot per index, in index order regardless of completion
// order. Once ctx is done, jobs that have not started are skipped and their
// slot holds ctx.Err().
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				errs[i] = fn(ctx, i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return errs
}
