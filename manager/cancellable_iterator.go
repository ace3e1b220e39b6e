package manager

import (
	"sync"

	"github.com/jtdaugherty/fluxgo/job"
)

// CancellableIterator hands out work units one at a time to any number of
// concurrent pullers. Cancel is one-way: once flipped, every subsequent Next
// (and every Next already blocked, since no goroutine ever blocks here)
// returns (zero, false), regardless of units still remaining.
type CancellableIterator struct {
	mu        sync.Mutex
	units     []job.WorkUnit
	pos       int
	cancelled bool
}

// NewCancellableIterator returns an iterator over units, in order.
func NewCancellableIterator(units []job.WorkUnit) *CancellableIterator {
	return &CancellableIterator{units: units}
}

// Next returns the next unit and true, or a zero value and false once the
// units are exhausted or the iterator has been cancelled.
func (it *CancellableIterator) Next() (job.WorkUnit, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.cancelled || it.pos >= len(it.units) {
		return job.WorkUnit{}, false
	}
	u := it.units[it.pos]
	it.pos++
	return u, true
}

// Cancel flips the iterator into its terminal, exhausted state. Safe to call
// more than once and concurrently with Next.
func (it *CancellableIterator) Cancel() {
	it.mu.Lock()
	it.cancelled = true
	it.mu.Unlock()
}

// Cancelled reports whether Cancel has been called.
func (it *CancellableIterator) Cancelled() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cancelled
}
