// Package parallel splits index ranges across goroutines. The boosting
// engines use it to scan features concurrently during split search.
package parallel

import (
	"runtime"
	"sync"
)

// Workers returns how many goroutines a call may start for items units of
// work: GOMAXPROCS capped by items.
func Workers(items int) int {
	n := runtime.GOMAXPROCS(0)
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize divides [0, items) into contiguous chunks, one per worker, and
// calls fn(start, end) for each chunk concurrently. It returns once every
// chunk is done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := Workers(items)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
