// Package sink implements the result sink (C7): a single control thread that
// folds a job's RenderEvent stream into an Image, then persists it as PPM.
package sink

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config controls a Sink.
type Config struct {
	// Events is the stream a Sink folds into successive Images. Multiple
	// jobs' events may arrive on the same channel, one job at a time: a
	// fresh ImageInfo always starts the next job's prefix.
	Events <-chan job.RenderEvent

	// OutputDir is where "<scene_name>.ppm" is written on RenderingFinished.
	// Empty disables persistence.
	OutputDir string

	Clock  clock.Clock
	Logger *logrus.Entry
}

// Sink is the C7 control thread: it owns exactly one goroutine, reusable
// across any number of jobs in sequence.
type Sink struct {
	cfg Config

	mu    sync.RWMutex
	image *Image
}

// New validates cfg, filling in defaults, and returns a Sink ready to Run.
func New(cfg Config) (*Sink, error) {
	if cfg.Events == nil {
		return nil, xerrors.Errorf("sink: an event channel must be provided")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sink{cfg: cfg}, nil
}

// Run processes events until the channel is closed or an unexpected event
// prefix is seen, in which case it logs and returns. Run is meant to be
// called on its own goroutine; it blocks for the sink's entire lifetime.
func (s *Sink) Run() {
	for {
		ev, ok := <-s.cfg.Events
		if !ok {
			s.cfg.Logger.Info("sink: event channel closed, stopping")
			return
		}
		if ev.Kind != job.EventImageInfo {
			s.cfg.Logger.WithField("kind", ev.Kind).Error("sink: expected ImageInfo to open a job, got something else; aborting")
			return
		}

		if err := s.runJob(ev); err != nil {
			s.cfg.Logger.WithError(err).Error("sink: aborting")
			return
		}
	}
}

// runJob processes exactly one job's event prefix: ImageInfo, then
// RenderingStarted, then any number of RowsReady, then RenderingFinished.
func (s *Sink) runJob(info job.RenderEvent) error {
	logger := s.cfg.Logger.WithField("job_id", info.JobID)
	logger.Infof("sink: image %dx%d pixels", info.Width, info.Height)

	img := NewImage(info.Width, info.Height)
	s.mu.Lock()
	s.image = img
	s.mu.Unlock()

	started, ok := <-s.cfg.Events
	if !ok {
		return xerrors.Errorf("event channel closed before RenderingStarted")
	}
	if started.Kind != job.EventRenderingStarted {
		return xerrors.Errorf("expected RenderingStarted after ImageInfo, got %q", started.Kind)
	}
	startTime := started.WallTime

	for {
		ev, ok := <-s.cfg.Events
		if !ok {
			return xerrors.Errorf("event channel closed mid-job")
		}

		switch ev.Kind {
		case job.EventRowsReady:
			img.SetRows(ev.Result)
			logger.Debugf("sink: fragment done, %d rows", len(ev.Result.Rows))
		case job.EventRenderingFinished:
			duration := ev.WallTime.Sub(startTime)
			logger.WithField("duration", duration).Info("sink: rendering finished")
			return s.persist(info, img)
		default:
			return xerrors.Errorf("unexpected event %q mid-job", ev.Kind)
		}
	}
}

func (s *Sink) persist(info job.RenderEvent, img *Image) error {
	if s.cfg.OutputDir == "" {
		return nil
	}

	path := filepath.Join(s.cfg.OutputDir, sceneFileName(info))
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WritePPM(img, f); err != nil {
		return xerrors.Errorf("sink: write %s: %w", path, err)
	}
	s.cfg.Logger.WithField("path", path).Info("sink: wrote image")
	return nil
}

func sceneFileName(info job.RenderEvent) string {
	name := info.SceneName
	if name == "" {
		name = "untitled"
	}
	return name + ".ppm"
}

// Image returns the framebuffer for whichever job is currently (or was most
// recently) in progress, for preview readers. It may be nil before the first
// ImageInfo arrives.
func (s *Sink) Image() *Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}
