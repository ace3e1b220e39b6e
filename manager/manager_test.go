package manager_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/juju/clock/testclock"
	gc "gopkg.in/check.v1"
)

func Test(t *testing.T) { gc.TestingT(t) }

var _ = gc.Suite(new(ManagerTestSuite))

type ManagerTestSuite struct{}

// stubWorker is a manager.WorkerHandle that renders every unit it is handed
// with a fixed solid color, recording which units it saw.
type stubWorker struct {
	color scene.Color
	delay time.Duration

	mu    sync.Mutex
	units []job.WorkUnit
}

func (w *stubWorker) Send(ctx context.Context, j job.Job, units manager.UnitSource, events chan<- job.RenderEvent, tok *manager.Token) {
	go func() {
		defer tok.Release()
		width := j.SceneData.OutputSettings.ImageWidth
		for {
			u, ok := units.Next()
			if !ok {
				return
			}
			if w.delay > 0 {
				time.Sleep(w.delay)
			}
			w.mu.Lock()
			w.units = append(w.units, u)
			w.mu.Unlock()

			rows := make([][]scene.Color, u.NumRows())
			for i := range rows {
				row := make([]scene.Color, width)
				for x := range row {
					row[x] = w.color
				}
				rows[i] = row
			}
			select {
			case events <- job.RowsReadyEvent(j.ID, job.WorkUnitResult{WorkUnit: u, Rows: rows}):
			case <-ctx.Done():
				return
			}
		}
	}()
}

func sceneData(width, height int) scene.Data {
	return scene.Data{
		Name:           "test",
		OutputSettings: scene.OutputSettings{ImageWidth: width, ImageHeight: height, PixelSize: 1},
	}
}

func drain(c *gc.C, events <-chan job.RenderEvent, timeout time.Duration) []job.RenderEvent {
	var got []job.RenderEvent
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
			if ev.Kind == job.EventRenderingFinished {
				return got
			}
		case <-deadline:
			c.Fatal("timed out waiting for RenderingFinished")
			return nil
		}
	}
}

// S3 — single worker, solid-color stub tracer, full framebuffer coverage.
func (s *ManagerTestSuite) TestSingleWorkerFullCoverage(c *gc.C) {
	w := &stubWorker{color: scene.Color{R: 0.25, G: 0.5, B: 1}}
	events := make(chan job.RenderEvent, 256)

	mgr, err := manager.New(manager.Config{Workers: []manager.WorkerHandle{w}, Events: events})
	c.Assert(err, gc.IsNil)
	defer mgr.Stop()

	handle := mgr.ScheduleJob(sceneData(40, 4), job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 2})
	got := drain(c, events, 2*time.Second)

	c.Assert(got[0].Kind, gc.Equals, job.EventImageInfo)
	c.Assert(got[1].Kind, gc.Equals, job.EventRenderingStarted)
	c.Assert(got[len(got)-1].Kind, gc.Equals, job.EventRenderingFinished)

	rowsSeen := map[int]bool{}
	for _, ev := range got[2 : len(got)-1] {
		c.Assert(ev.Kind, gc.Equals, job.EventRowsReady)
		for i, row := range ev.Result.Rows {
			c.Assert(row, gc.HasLen, 40)
			for _, px := range row {
				c.Assert(px, gc.Equals, scene.Color{R: 0.25, G: 0.5, B: 1})
			}
			rowsSeen[ev.Result.WorkUnit.RowStart+i] = true
		}
	}
	c.Assert(len(rowsSeen), gc.Equals, 4)
	handle.Wait()
}

// S4 — cancellation mid-run: the emitted RowsReady set is a strict subset of
// the full partition, and RenderingFinished still arrives.
func (s *ManagerTestSuite) TestCancellationMidRun(c *gc.C) {
	w := &stubWorker{color: scene.Color{}, delay: 10 * time.Millisecond}
	events := make(chan job.RenderEvent, 4096)

	mgr, err := manager.New(manager.Config{Workers: []manager.WorkerHandle{w}, Events: events})
	c.Assert(err, gc.IsNil)
	defer mgr.Stop()

	handle := mgr.ScheduleJob(sceneData(4, 1000), job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 10})

	time.Sleep(50 * time.Millisecond)
	handle.Cancel()

	got := drain(c, events, 5*time.Second)
	c.Assert(got[len(got)-1].Kind, gc.Equals, job.EventRenderingFinished)

	rowsSeen := map[int]bool{}
	for _, ev := range got {
		if ev.Kind != job.EventRowsReady {
			continue
		}
		for i := range ev.Result.Rows {
			rowsSeen[ev.Result.WorkUnit.RowStart+i] = true
		}
	}
	c.Assert(len(rowsSeen) < 1000, gc.Equals, true)
	handle.Wait()
}

// S5 — two workers, every row covered exactly once, both contribute.
func (s *ManagerTestSuite) TestMixedWorkersCoverDisjointRows(c *gc.C) {
	w1 := &stubWorker{color: scene.Color{R: 1}}
	w2 := &stubWorker{color: scene.Color{G: 1}}
	events := make(chan job.RenderEvent, 4096)

	mgr, err := manager.New(manager.Config{Workers: []manager.WorkerHandle{w1, w2}, Events: events})
	c.Assert(err, gc.IsNil)
	defer mgr.Stop()

	mgr.ScheduleJob(sceneData(4, 300), job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 10}).Wait()

	got := drain(c, events, 5*time.Second)
	rowsSeen := map[int]int{}
	for _, ev := range got {
		if ev.Kind != job.EventRowsReady {
			continue
		}
		for i := range ev.Result.Rows {
			rowsSeen[ev.Result.WorkUnit.RowStart+i]++
		}
	}
	c.Assert(rowsSeen, gc.HasLen, 300)
	for row, n := range rowsSeen {
		c.Assert(n, gc.Equals, 1, gc.Commentf("row %d seen %d times", row, n))
	}

	w1.mu.Lock()
	w1Units := len(w1.units)
	w1.mu.Unlock()
	w2.mu.Lock()
	w2Units := len(w2.units)
	w2.mu.Unlock()
	c.Assert(w1Units > 0, gc.Equals, true)
	c.Assert(w2Units > 0, gc.Equals, true)
}

func (s *ManagerTestSuite) TestConfigValidateRequiresWorkersAndEvents(c *gc.C) {
	var cfg manager.Config
	err := cfg.Validate()
	c.Assert(err, gc.NotNil)
	c.Assert(cfg.Logger, gc.NotNil)
	c.Assert(cfg.Clock, gc.NotNil)
}

func (s *ManagerTestSuite) TestNewUsesInjectedClockForTimestamps(c *gc.C) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start)
	w := &stubWorker{color: scene.Color{}}
	events := make(chan job.RenderEvent, 16)

	mgr, err := manager.New(manager.Config{Workers: []manager.WorkerHandle{w}, Events: events, Clock: clk})
	c.Assert(err, gc.IsNil)
	defer mgr.Stop()

	mgr.ScheduleJob(sceneData(1, 1), job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 1}).Wait()

	got := drain(c, events, 2*time.Second)
	c.Assert(got[1].Kind, gc.Equals, job.EventRenderingStarted)
	c.Assert(got[1].WallTime.Equal(start), gc.Equals, true)
}
