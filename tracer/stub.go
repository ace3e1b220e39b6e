package tracer

import (
	"context"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
)

// Stub is a solid-color Tracer used by control-plane tests: it produces a
// correctly-shaped WorkUnitResult without doing any ray/shape work, so
// the localworker and netserver tests don't pay for (or depend on) real
// rendering.
type Stub struct {
	Color scene.Color
}

// NewStub returns a Stub painting every pixel the given color.
func NewStub(c scene.Color) *Stub {
	return &Stub{Color: c}
}

// Render fills the requested rows with Stub.Color, ignoring the scene.
func (s *Stub) Render(ctx context.Context, sc *Scene, unit job.WorkUnit) (job.WorkUnitResult, error) {
	if err := ctx.Err(); err != nil {
		return job.WorkUnitResult{}, err
	}

	width := sc.Data.OutputSettings.ImageWidth
	rows := make([][]scene.Color, unit.NumRows())
	for i := range rows {
		row := make([]scene.Color, width)
		for x := range row {
			row[x] = s.Color
		}
		rows[i] = row
	}

	return job.WorkUnitResult{WorkUnit: unit, Rows: rows}, nil
}
