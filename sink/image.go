package sink

import (
	"sync"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
)

// Image is the framebuffer a Sink assembles a job's RowsReady events into. It
// is safe for concurrent use: a preview reader can snapshot rows while the
// sink is still filling them in.
type Image struct {
	mu     sync.RWMutex
	width  int
	height int
	pixels [][]scene.Color
}

// NewImage allocates a width x height framebuffer with every pixel initially
// black (rows never written by a RowsReady event stay black, matching
// spec's zero-padded-on-write PPM semantics rather than panicking).
func NewImage(width, height int) *Image {
	pixels := make([][]scene.Color, height)
	for i := range pixels {
		pixels[i] = make([]scene.Color, width)
	}
	return &Image{width: width, height: height, pixels: pixels}
}

// Width reports the image's width in pixels.
func (img *Image) Width() int { return img.width }

// Height reports the image's height in pixels.
func (img *Image) Height() int { return img.height }

// SetRows stores one work unit's rendered rows, each offset by the unit's
// RowStart, under the image's write lock.
func (img *Image) SetRows(result job.WorkUnitResult) {
	img.mu.Lock()
	defer img.mu.Unlock()

	for i, row := range result.Rows {
		r := result.WorkUnit.RowStart + i
		if r < 0 || r >= img.height {
			continue
		}
		copy(img.pixels[r], row)
	}
}

// Row returns a copy of one row of pixels, safe to read concurrently with
// in-progress SetRows calls.
func (img *Image) Row(r int) []scene.Color {
	img.mu.RLock()
	defer img.mu.RUnlock()

	out := make([]scene.Color, len(img.pixels[r]))
	copy(out, img.pixels[r])
	return out
}

// Snapshot returns a deep copy of the entire framebuffer.
func (img *Image) Snapshot() [][]scene.Color {
	img.mu.RLock()
	defer img.mu.RUnlock()

	out := make([][]scene.Color, img.height)
	for i, row := range img.pixels {
		cp := make([]scene.Color, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out
}
