// Package manager implements the render manager (C6): job scheduling,
// work-unit partitioning, dispatch to workers and the completion/cancel
// rendezvous that ties a job's RenderEvent stream together.
package manager

import (
	"context"
	"sync"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
)

type jobRequest struct {
	sceneData scene.Data
	config    job.Configuration
	id        job.ID
	done      chan struct{}
	handle    *JobHandle
}

// JobHandle is returned by ScheduleJob. Wait blocks until the job's
// RenderingFinished event has been emitted; Cancel requests cooperative,
// drain-to-completion cancellation of any work not yet claimed by a worker.
type JobHandle struct {
	id   job.ID
	done chan struct{}

	mu   sync.Mutex
	iter *CancellableIterator
}

// ID returns the job's identifier.
func (h *JobHandle) ID() job.ID { return h.id }

// Wait blocks until the job's terminal RenderingFinished event has been
// produced.
func (h *JobHandle) Wait() {
	<-h.done
}

// Cancel requests best-effort cancellation: work units not yet claimed by a
// worker are dropped; units already in flight run to completion. Safe to
// call more than once.
func (h *JobHandle) Cancel() {
	h.mu.Lock()
	it := h.iter
	h.mu.Unlock()
	if it != nil {
		it.Cancel()
	}
}

// RenderManager owns a single scheduler goroutine that serializes job
// submission: jobs are processed one at a time, each fanned out to every
// configured worker and run to completion before the next job starts.
type RenderManager struct {
	cfg   Config
	alloc *job.IDAllocator

	queue chan *jobRequest
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New validates cfg and starts the manager's scheduler goroutine.
func New(cfg Config) (*RenderManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	alloc, err := job.NewIDAllocator()
	if err != nil {
		return nil, err
	}

	m := &RenderManager{
		cfg:   cfg,
		alloc: alloc,
		queue: make(chan *jobRequest),
		stop:  make(chan struct{}),
	}

	m.wg.Add(1)
	go m.run()
	return m, nil
}

// ScheduleJob enqueues a job for rendering and returns a handle to track and
// cancel it. ScheduleJob never blocks past handing the request to the
// scheduler goroutine.
func (m *RenderManager) ScheduleJob(sceneData scene.Data, cfg job.Configuration) *JobHandle {
	id := m.alloc.Next()
	handle := &JobHandle{id: id, done: make(chan struct{})}
	req := &jobRequest{sceneData: sceneData, config: cfg, id: id, done: handle.done, handle: handle}

	go func() {
		select {
		case m.queue <- req:
		case <-m.stop:
		}
	}()

	return handle
}

// Stop drains in-flight work and shuts down the scheduler goroutine. It does
// not cancel a job currently rendering; it waits for it to finish.
func (m *RenderManager) Stop() {
	close(m.stop)
	m.wg.Wait()
}

func (m *RenderManager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stop:
			m.cfg.Logger.Info("render manager: shutting down")
			return
		case req := <-m.queue:
			m.runJob(req)
		}
	}
}

// sendEvent delivers ev to the configured Events channel, unless ctx is
// cancelled first, and reports whether ev was actually delivered. Nothing in
// RenderManager observes whether the event sink is still reading Events, so
// a sink that has stopped reading leaves sendEvent blocked.
func (m *RenderManager) sendEvent(ctx context.Context, ev job.RenderEvent) bool {
	select {
	case m.cfg.Events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *RenderManager) runJob(req *jobRequest) {
	logger := m.cfg.Logger.WithField("job_id", req.id)
	logger.Info("render manager: starting job")

	j := job.Job{ID: req.id, SceneData: req.sceneData, Config: req.config}
	units := j.WorkUnits()

	// jobCtx is passed to every worker, and every site that publishes a
	// RenderEvent for this job selects against it. It is cancelled when
	// runJob returns or when a sendEvent fails; since sendEvent only fails
	// once jobCtx is already cancelled, an event sink that stops draining
	// Events does not cancel it, and this job's sends then block.
	jobCtx, abandon := context.WithCancel(context.Background())
	defer abandon()

	if !m.sendEvent(jobCtx, job.ImageInfoEvent(j.ID, j.SceneData.Name, j.SceneData.OutputSettings.ImageWidth, j.SceneData.OutputSettings.ImageHeight)) {
		logger.Warn("render manager: event sink gone, abandoning job before it started")
		close(req.done)
		return
	}
	if !m.sendEvent(jobCtx, job.RenderingStartedEvent(j.ID, m.cfg.Clock.Now())) {
		logger.Warn("render manager: event sink gone, abandoning job before it started")
		close(req.done)
		return
	}

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.JobsStarted.Inc()
	}

	iter := NewCancellableIterator(units)
	req.handle.mu.Lock()
	req.handle.iter = iter
	req.handle.mu.Unlock()

	group := NewCompletionGroup()

	// Workers publish RowsReady straight onto relay rather than m.cfg.Events,
	// so every unit that actually completes can be counted before its event
	// is forwarded on.
	relay := make(chan job.RenderEvent, 256)
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for ev := range relay {
			if m.cfg.Metrics != nil && ev.Kind == job.EventRowsReady {
				m.cfg.Metrics.WorkUnitsDispatched.Inc()
				m.cfg.Metrics.RowsRendered.Add(float64(len(ev.Result.Rows)))
			}
			// relay keeps draining even after abandon, so workers blocked
			// on a relay send (not on m.cfg.Events) still complete and
			// release their tokens; the event itself is just dropped.
			if !m.sendEvent(jobCtx, ev) {
				abandon()
			}
		}
	}()

	tokens := make([]*Token, len(m.cfg.Workers))
	for i := range m.cfg.Workers {
		tokens[i] = group.Add()
	}
	for i, w := range m.cfg.Workers {
		w.Send(jobCtx, j, iter, relay, tokens[i])
	}

	group.Wait()
	close(relay)
	<-forwardDone

	if !m.sendEvent(jobCtx, job.RenderingFinishedEvent(j.ID, m.cfg.Clock.Now())) {
		logger.Warn("render manager: event sink gone, RenderingFinished not delivered")
	}
	if m.cfg.Metrics != nil {
		if iter.Cancelled() {
			m.cfg.Metrics.JobsCancelled.Inc()
		} else {
			m.cfg.Metrics.JobsFinished.Inc()
		}
	}

	logger.Info("render manager: job complete")
	close(req.done)
}
