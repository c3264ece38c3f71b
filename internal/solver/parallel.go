package solver

import "sync"

// parallelFor executes fn over [0, n) split into contiguous chunks on up
// to workers goroutines. Each chunk writes only its own output range, so
// callers need no further synchronization.
func parallelFor(workers, n, minChunk int, fn func(start, end int)) {
	if workers < 1 {
		workers = 1
	}
	if workers > 1 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
