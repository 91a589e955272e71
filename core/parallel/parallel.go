// Package parallel splits index ranges across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into one contiguous chunk per CPU core and
// runs fn on each chunk concurrently. It returns when every chunk is done.
func Parallelize(items int, fn func(start, end int)) {
	_ = ParallelizeErr(items, func(start, end int) error {
		fn(start, end)
		return nil
	})
}

// ParallelizeErr is Parallelize for chunk functions that can fail.
// It returns the error of the lowest-indexed failing chunk so the result
// does not depend on scheduling.
func ParallelizeErr(items int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	errs := make([]error, numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, items)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			errs[w] = fn(s, e)
		}(i, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items is at most threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
