package loadgen

import (
	"context"
	"sync"
)

// runPool calls fn for every index in [0, n) on workers goroutines and
// returns the errors by index. Remaining items are skipped once ctx is done.
func runPool(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) []error {
	if workers < 1 {
		workers = 1
	}
	errs := make([]error, n)
	jobs := make(chan int, workers*2)

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
