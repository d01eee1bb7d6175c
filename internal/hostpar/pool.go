// Package hostpar provides a small worker pool for parallel host-side
// batch computation. It backs the CPU fallback path, which mirrors the
// per-element parallelism of the GPU kernels for large batches.
package hostpar

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines for parallel batch computation.
//
// The pool distributes tasks across multiple workers, each with its own
// queue. Workers steal from other workers when their own queue is empty,
// which balances load when some chunks are slower than others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds per-worker task queues.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting tasks.
	running atomic.Bool
}

// New creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for tasks.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// A few buffered slots per worker hide submission latency.
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	mine := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(mine)
			return

		case task := <-mine:
			if task != nil {
				task()
			}

		default:
			// Try to steal from another worker before blocking.
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(mine)
				return
			case task := <-mine:
				if task != nil {
					task()
				}
			}
		}
	}
}

// drain executes all remaining tasks in a queue.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			if task != nil {
				task()
			}
		default:
			return
		}
	}
}

// steal attempts to take a task from another worker's queue.
// Returns nil if no task is available.
func (p *Pool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// RunAll distributes tasks across workers and waits for all to complete.
// If the pool is closed, this is a no-op.
func (p *Pool) RunAll(tasks []func()) {
	if len(tasks) == 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(tasks))

	for i, fn := range tasks {
		workerID := i % p.workers
		task := fn

		wrapped := func() {
			defer completion.Done()
			task()
		}

		select {
		case p.queues[workerID] <- wrapped:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Close gracefully shuts down the pool. It stops accepting new tasks,
// waits for all queued tasks to complete, then stops all workers.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
