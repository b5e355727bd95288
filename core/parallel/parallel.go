// Package parallel fans index ranges out over CPU cores. It is used for the
// row loops in feature transformation and batch prediction, where each worker
// writes only to its own rows and no synchronization beyond the final wait is
// needed.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into per-core chunks and runs fn(start, end)
// on each chunk concurrently, returning after all chunks complete.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so every item is covered.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, avoiding goroutine overhead on small inputs.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
