package sink

import (
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/sirupsen/logrus"
)

// LogReporter is a secondary, diagnostics-only consumer of a RenderEvent
// stream: it logs a line per event and otherwise does nothing with the
// data. It exists alongside Sink so a caller can fan the same event stream
// out to both the image-assembling Sink and a human-readable progress log,
// the way the original's ConsoleResultReporter stood in for (and could run
// alongside) the image-writing path.
type LogReporter struct {
	logger *logrus.Entry
}

// NewLogReporter returns a LogReporter that logs through logger (or the
// standard logger if nil).
func NewLogReporter(logger *logrus.Entry) *LogReporter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LogReporter{logger: logger}
}

// Run logs each event on events until it is closed.
func (r *LogReporter) Run(events <-chan job.RenderEvent) {
	for ev := range events {
		switch ev.Kind {
		case job.EventImageInfo:
			r.logger.Infof("LogReporter: image %d x %d pixels", ev.Width, ev.Height)
		case job.EventRenderingStarted:
			r.logger.Info("LogReporter: rendering started")
		case job.EventRowsReady:
			r.logger.Infof("LogReporter: image fragment done, %d rows", ev.Result.WorkUnit.NumRows())
		case job.EventRenderingFinished:
			r.logger.Info("LogReporter: rendering finished")
		}
	}
}
