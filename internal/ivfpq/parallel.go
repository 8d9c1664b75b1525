package ivfpq

import "sync"

// parallelFor runs fn(i) for every i in [0,n) across at most workers
// goroutines, blocking until all calls complete. workers<=0 or workers>n is
// clamped to a sane range. This is the hand-rolled worker-pool idiom used
// throughout the index and coordinator, standing in for the reference's
// OpenMP parallel-for loops.
func parallelFor(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
