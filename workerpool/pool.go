// Package workerpool implements the process-global data-parallel pool shared
// by every local-worker job: a fixed set of goroutines draining one shared
// task channel, sized once for the life of the process.
package workerpool

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of CPU-bound work submitted to the pool.
type Task func()

// Pool is a fixed-size goroutine pool draining a shared task channel.
type Pool struct {
	numThreads int
	tasks      chan Task
	wg         sync.WaitGroup
}

var (
	globalMu   sync.Mutex
	globalPool *Pool
)

// Configure initializes the process-global pool with numThreads workers. The
// first call wins: a second call is idempotent and merely logs a warning,
// returning the pool built by the first call, exactly as the original
// rayon-backed implementation treats a second
// ThreadPoolBuilder::build_global() call as a no-op.
func Configure(numThreads int, logger *logrus.Entry) *Pool {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if numThreads < 1 {
		numThreads = 1
	}

	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		logger.Warnf("workerpool: global pool already configured with %d threads, ignoring request for %d",
			globalPool.numThreads, numThreads)
		return globalPool
	}

	p := &Pool{numThreads: numThreads, tasks: make(chan Task)}
	p.wg.Add(numThreads)
	for i := 0; i < numThreads; i++ {
		go func() {
			defer p.wg.Done()
			for t := range p.tasks {
				t()
			}
		}()
	}

	logger.Infof("workerpool: global pool configured with %d threads", numThreads)
	globalPool = p
	return p
}

// Global returns the process-global pool, or nil if Configure has not been
// called yet.
func Global() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalPool
}

// resetForTest tears down the global pool so tests can reconfigure it. It is
// unexported: production code never needs to un-configure the pool.
func resetForTest() {
	globalMu.Lock()
	p := globalPool
	globalPool = nil
	globalMu.Unlock()

	if p != nil {
		close(p.tasks)
		p.wg.Wait()
	}
}

// NumThreads reports how many workers this pool runs.
func (p *Pool) NumThreads() int {
	return p.numThreads
}

// Submit enqueues a task for execution, blocking until a worker accepts it.
func (p *Pool) Submit(t Task) {
	p.tasks <- t
}
