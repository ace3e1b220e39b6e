// Package localworker implements the local worker (C3): a manager.WorkerHandle
// that renders work units in-process, fanning each unit out onto the shared
// data-parallel pool.
package localworker

import (
	"context"
	"sync"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/tracer"
	"github.com/jtdaugherty/fluxgo/workerpool"
	"github.com/sirupsen/logrus"
)

// Config controls a Worker.
type Config struct {
	// Pool is the shared data-parallel pool units are rendered on. Defaults
	// to workerpool.Global() (configure it before constructing a Worker).
	Pool *workerpool.Pool

	// Kernel renders one work unit. Defaults to tracer.NewPathTracer().
	Kernel tracer.Tracer

	// Logger receives lifecycle diagnostics. Defaults to logrus's standard
	// logger.
	Logger *logrus.Entry
}

// Worker is a manager.WorkerHandle that renders locally.
type Worker struct {
	pool   *workerpool.Pool
	kernel tracer.Tracer
	logger *logrus.Entry
}

// New constructs a Worker, defaulting Pool to workerpool.Global() when unset.
func New(cfg Config) *Worker {
	if cfg.Pool == nil {
		cfg.Pool = workerpool.Global()
	}
	if cfg.Kernel == nil {
		cfg.Kernel = tracer.NewPathTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Worker{pool: cfg.Pool, kernel: cfg.Kernel, logger: cfg.Logger}
}

// NumThreads reports the thread count of the underlying pool.
func (w *Worker) NumThreads() int {
	if w.pool == nil {
		return 0
	}
	return w.pool.NumThreads()
}

// Send implements manager.WorkerHandle: it builds the scene once, then pulls
// work units from the iterator until exhausted, fanning each render out onto
// the shared pool. Render failures are logged and the unit is dropped — a
// single bad unit does not abort the job. Once ctx is cancelled (the event
// sink is gone), a result that cannot be published is dropped rather than
// blocking the pool worker that rendered it forever. Once the iterator is
// exhausted and every dispatched render has completed, tok is released.
func (w *Worker) Send(ctx context.Context, j job.Job, units manager.UnitSource, events chan<- job.RenderEvent, tok *manager.Token) {
	go func() {
		defer tok.Release()

		sc, err := tracer.Build(j.SceneData, j.Config)
		if err != nil {
			w.logger.WithField("job_id", j.ID).WithError(err).Error("local worker: failed to build scene, abandoning job")
			return
		}

		var wg sync.WaitGroup
		for {
			unit, ok := units.Next()
			if !ok {
				break
			}

			wg.Add(1)
			task := func() {
				defer wg.Done()
				result, err := w.kernel.Render(context.Background(), sc, unit)
				if err != nil {
					w.logger.WithField("job_id", j.ID).WithError(err).Warn("local worker: render failed, dropping unit")
					return
				}
				select {
				case events <- job.RowsReadyEvent(j.ID, result):
				case <-ctx.Done():
					w.logger.WithField("job_id", j.ID).Warn("local worker: event sink gone, dropping result")
				}
			}

			if w.pool != nil {
				w.pool.Submit(task)
			} else {
				task()
			}
		}

		wg.Wait()
		w.logger.WithField("job_id", j.ID).Info("local worker: finished job")
	}()
}
