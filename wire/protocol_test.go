package wire_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/jtdaugherty/fluxgo/wire"
	gc "gopkg.in/check.v1"
)

func Test(t *testing.T) { gc.TestingT(t) }

var _ = gc.Suite(new(ProtocolTestSuite))

type ProtocolTestSuite struct{}

func (s *ProtocolTestSuite) TestWorkerInfoRoundTrip(c *gc.C) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	c.Assert(enc.EncodeWorkerInfo(wire.WorkerInfo{NumThreads: 4}), gc.IsNil)

	dec := wire.NewDecoder(&buf)
	info, err := dec.DecodeWorkerInfo()
	c.Assert(err, gc.IsNil)
	c.Assert(info.NumThreads, gc.Equals, uint64(4))
}

func (s *ProtocolTestSuite) TestNetworkWorkerRequestsConcatenateOnOneStream(c *gc.C) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)

	j := job.Job{
		ID:        job.ID{Nonce: 7, Sequence: 1},
		SceneData: scene.Data{Name: "s", OutputSettings: scene.OutputSettings{ImageWidth: 2, ImageHeight: 2}},
		Config:    job.Configuration{SampleRoot: 1, MaxTraceDepth: 1, RowsPerWorkUnit: 2},
	}
	wj := wire.FromJob(j)

	c.Assert(enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestSetJob, SetJob: &wj}), gc.IsNil)
	u := wire.FromWorkUnit(job.WorkUnit{RowStart: 0, RowEnd: 1})
	c.Assert(enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestWorkUnit, WorkUnit: &u}), gc.IsNil)
	c.Assert(enc.EncodeRequest(wire.NetworkWorkerRequest{Kind: wire.RequestDone}), gc.IsNil)

	dec := wire.NewDecoder(&buf)

	setJob, err := dec.DecodeRequest()
	c.Assert(err, gc.IsNil)
	c.Assert(setJob.Kind, gc.Equals, wire.RequestSetJob)
	c.Assert(setJob.SetJob.ToJob(), gc.DeepEquals, j)

	unit, err := dec.DecodeRequest()
	c.Assert(err, gc.IsNil)
	c.Assert(unit.Kind, gc.Equals, wire.RequestWorkUnit)
	c.Assert(unit.WorkUnit.ToWorkUnit(j.ID), gc.DeepEquals, job.WorkUnit{JobID: j.ID, RowStart: 0, RowEnd: 1})

	done, err := dec.DecodeRequest()
	c.Assert(err, gc.IsNil)
	c.Assert(done.Kind, gc.Equals, wire.RequestDone)
}

func (s *ProtocolTestSuite) TestRenderEventRoundTrip(c *gc.C) {
	id := job.ID{Nonce: 1, Sequence: 2}
	now := time.Unix(1_700_000_000, 123456000).UTC()

	events := []job.RenderEvent{
		job.ImageInfoEvent(id, "scene", 4, 4),
		job.RenderingStartedEvent(id, now),
		job.RowsReadyEvent(id, job.WorkUnitResult{
			WorkUnit: job.WorkUnit{JobID: id, RowStart: 0, RowEnd: 1},
			Rows: [][]scene.Color{
				{{R: 1, G: 0, B: 0}, {R: 0, G: 1, B: 0}},
				{{R: 0, G: 0, B: 1}, {R: 1, G: 1, B: 1}},
			},
		}),
		job.RenderingFinishedEvent(id, now),
	}

	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	for _, ev := range events {
		c.Assert(enc.EncodeEvent(wire.FromRenderEvent(ev)), gc.IsNil)
	}

	dec := wire.NewDecoder(&buf)
	for _, want := range events {
		wev, err := dec.DecodeEvent()
		c.Assert(err, gc.IsNil)
		got, err := wev.ToRenderEvent(id)
		c.Assert(err, gc.IsNil)
		c.Assert(got, gc.DeepEquals, want)
	}
}
