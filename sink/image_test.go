package sink_test

import (
	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/jtdaugherty/fluxgo/sink"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ImageTestSuite))

type ImageTestSuite struct{}

func (s *ImageTestSuite) TestSetRowsOffsetsByRowStart(c *gc.C) {
	img := sink.NewImage(1, 4)
	img.SetRows(job.WorkUnitResult{
		WorkUnit: job.WorkUnit{RowStart: 2, RowEnd: 3},
		Rows:     [][]scene.Color{{{R: 1}}, {{G: 1}}},
	})

	c.Assert(img.Row(0), gc.DeepEquals, []scene.Color{{}})
	c.Assert(img.Row(2), gc.DeepEquals, []scene.Color{{R: 1}})
	c.Assert(img.Row(3), gc.DeepEquals, []scene.Color{{G: 1}})
}

func (s *ImageTestSuite) TestSetRowsIgnoresOutOfRangeRows(c *gc.C) {
	img := sink.NewImage(1, 1)
	img.SetRows(job.WorkUnitResult{
		WorkUnit: job.WorkUnit{RowStart: 5, RowEnd: 5},
		Rows:     [][]scene.Color{{{R: 1}}},
	})
	c.Assert(img.Row(0), gc.DeepEquals, []scene.Color{{}})
}

func (s *ImageTestSuite) TestSnapshotIsIndependentCopy(c *gc.C) {
	img := sink.NewImage(1, 1)
	snap := img.Snapshot()
	img.SetRows(job.WorkUnitResult{WorkUnit: job.WorkUnit{RowStart: 0, RowEnd: 0}, Rows: [][]scene.Color{{{R: 1}}}})
	c.Assert(snap[0][0], gc.DeepEquals, scene.Color{})
	c.Assert(img.Row(0)[0], gc.DeepEquals, scene.Color{R: 1})
}
