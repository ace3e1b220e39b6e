package sink_test

import (
	"bytes"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
	"github.com/jtdaugherty/fluxgo/sink"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PPMTestSuite))

type PPMTestSuite struct{}

func (s *PPMTestSuite) TestWritePPMHeaderAndWhitePixel(c *gc.C) {
	img := sink.NewImage(2, 1)
	img.SetRows(job.WorkUnitResult{
		WorkUnit: job.WorkUnit{RowStart: 0, RowEnd: 0},
		Rows:     [][]scene.Color{{{R: 1, G: 1, B: 1}, {R: 0, G: 0, B: 0}}},
	})

	var buf bytes.Buffer
	c.Assert(sink.WritePPM(img, &buf), gc.IsNil)

	c.Assert(buf.String(), gc.Equals, "P3\n2 1\n65535\n65535 65535 65535\n0 0 0\n")
}

func (s *PPMTestSuite) TestWritePPMClampsOutOfRangeChannels(c *gc.C) {
	img := sink.NewImage(1, 1)
	img.SetRows(job.WorkUnitResult{
		WorkUnit: job.WorkUnit{RowStart: 0, RowEnd: 0},
		Rows:     [][]scene.Color{{{R: 2, G: -1, B: 0.5}}},
	})

	var buf bytes.Buffer
	c.Assert(sink.WritePPM(img, &buf), gc.IsNil)
	c.Assert(buf.String(), gc.Equals, "P3\n1 1\n65535\n65535 0 32767\n")
}

func (s *PPMTestSuite) TestImageUnwrittenRowsStayBlack(c *gc.C) {
	img := sink.NewImage(1, 2)
	img.SetRows(job.WorkUnitResult{
		WorkUnit: job.WorkUnit{RowStart: 0, RowEnd: 0},
		Rows:     [][]scene.Color{{{R: 1, G: 1, B: 1}}},
	})

	var buf bytes.Buffer
	c.Assert(sink.WritePPM(img, &buf), gc.IsNil)
	c.Assert(buf.String(), gc.Equals, "P3\n1 2\n65535\n65535 65535 65535\n0 0 0\n")
}
