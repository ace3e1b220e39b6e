package localworker_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/localworker"
	"github.com/jtdaugherty/fluxgo/manager"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/jtdaugherty/fluxgo/tracer"
	"github.com/jtdaugherty/fluxgo/tracer/mocks"
	gc "gopkg.in/check.v1"
	"golang.org/x/xerrors"
)

func Test(t *testing.T) { gc.TestingT(t) }

var _ = gc.Suite(new(WorkerTestSuite))

type WorkerTestSuite struct{}

func testJob() job.Job {
	return job.Job{
		SceneData: scene.Data{
			Name:           "test",
			OutputSettings: scene.OutputSettings{ImageWidth: 2, ImageHeight: 6, PixelSize: 1},
		},
		Config: job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 2},
	}
}

func (s *WorkerTestSuite) TestSendRendersEveryUnitAndReleasesToken(c *gc.C) {
	w := localworker.New(localworker.Config{Kernel: tracer.NewStub(scene.Color{R: 0.25, G: 0.5, B: 1})})

	j := testJob()
	iter := manager.NewCancellableIterator(j.WorkUnits())
	events := make(chan job.RenderEvent, 10)
	group := manager.NewCompletionGroup()
	tok := group.Add()

	w.Send(context.Background(), j, iter, events, tok)

	select {
	case <-doneCh(group):
	case <-time.After(time.Second):
		c.Fatal("timed out waiting for worker to release its token")
	}

	close(events)
	rowsSeen := map[int]bool{}
	for ev := range events {
		c.Assert(ev.Kind, gc.Equals, job.EventRowsReady)
		for i := range ev.Result.Rows {
			rowsSeen[ev.Result.WorkUnit.RowStart+i] = true
		}
	}
	c.Assert(len(rowsSeen), gc.Equals, j.SceneData.OutputSettings.ImageHeight)
}

func (s *WorkerTestSuite) TestSendHonorsCancellation(c *gc.C) {
	w := localworker.New(localworker.Config{Kernel: tracer.NewStub(scene.Color{})})

	j := testJob()
	iter := manager.NewCancellableIterator(j.WorkUnits())
	iter.Cancel()
	events := make(chan job.RenderEvent, 10)
	group := manager.NewCompletionGroup()
	tok := group.Add()

	w.Send(context.Background(), j, iter, events, tok)

	select {
	case <-doneCh(group):
	case <-time.After(time.Second):
		c.Fatal("timed out waiting for worker to release its token")
	}
	c.Assert(len(events), gc.Equals, 0)
}

func (s *WorkerTestSuite) TestSendDropsUnitOnRenderErrorAndContinues(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	mockTracer := mocks.NewMockTracer(ctrl)
	j := testJob()
	units := j.WorkUnits()
	c.Assert(units, gc.HasLen, 3)

	okResult := func(u job.WorkUnit) job.WorkUnitResult {
		rows := make([][]scene.Color, u.NumRows())
		for i := range rows {
			rows[i] = make([]scene.Color, j.SceneData.OutputSettings.ImageWidth)
		}
		return job.WorkUnitResult{WorkUnit: u, Rows: rows}
	}

	gomock.InOrder(
		mockTracer.EXPECT().Render(gomock.Any(), gomock.Any(), units[0]).
			Return(job.WorkUnitResult{}, xerrors.Errorf("boom")),
		mockTracer.EXPECT().Render(gomock.Any(), gomock.Any(), units[1]).
			Return(okResult(units[1]), nil),
		mockTracer.EXPECT().Render(gomock.Any(), gomock.Any(), units[2]).
			Return(okResult(units[2]), nil),
	)

	w := localworker.New(localworker.Config{Kernel: mockTracer})

	iter := manager.NewCancellableIterator(units)
	events := make(chan job.RenderEvent, 10)
	group := manager.NewCompletionGroup()
	tok := group.Add()

	w.Send(context.Background(), j, iter, events, tok)

	select {
	case <-doneCh(group):
	case <-time.After(time.Second):
		c.Fatal("timed out waiting for worker to release its token despite a render error")
	}

	close(events)
	var results []job.RenderEvent
	for ev := range events {
		results = append(results, ev)
	}
	c.Assert(results, gc.HasLen, 2)
	c.Assert(results[0].Result.WorkUnit, gc.Equals, units[1])
	c.Assert(results[1].Result.WorkUnit, gc.Equals, units[2])
}

func doneCh(g *manager.CompletionGroup) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		g.Wait()
		close(ch)
	}()
	return ch
}
