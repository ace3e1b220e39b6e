package manager

import (
	"context"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/metrics"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// WorkerHandle is how RenderManager dispatches one job to one worker,
// local or remote. Send must not block past handing the job off: the
// actual rendering happens on the worker's own goroutine(s), which pull
// units from the iterator and publish RowsReady events until the iterator
// is exhausted or cancelled, then release tok. The caller cancels ctx when
// published events can no longer be delivered (netserver does so on a wire
// write error; RenderManager does not detect a sink that stopped reading);
// a worker must stop publishing (and should stop claiming further units)
// once ctx.Done() fires, rather than block forever on a channel nothing is
// draining.
type WorkerHandle interface {
	Send(ctx context.Context, j job.Job, units UnitSource, events chan<- job.RenderEvent, tok *Token)
}

// Config controls a RenderManager.
type Config struct {
	// Workers is the fixed set of worker handles (local and/or remote) every
	// job is dispatched to.
	Workers []WorkerHandle

	// Events receives every RenderEvent produced by every scheduled job.
	Events chan<- job.RenderEvent

	// Clock supplies wall-clock timestamps for RenderingStarted/
	// RenderingFinished events. Defaults to clock.WallClock.
	Clock clock.Clock

	// Logger receives lifecycle diagnostics. Defaults to a discarding logger.
	Logger *logrus.Entry

	// Metrics receives job/dispatch counters. Optional.
	Metrics *metrics.Metrics
}

// Validate checks the configuration and fills in defaults for optional
// fields. Invalid configuration is refused at construction time.
func (c *Config) Validate() error {
	var err error
	if len(c.Workers) == 0 {
		err = multierror.Append(err, xerrors.Errorf("at least one worker handle must be provided"))
	}
	if c.Events == nil {
		err = multierror.Append(err, xerrors.Errorf("an event channel must be provided"))
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}
	return err
}
