// Package job implements the render job model: job identity, work-unit
// partitioning and the configuration a job is rendered with.
package job

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/jtdaugherty/fluxgo/scene"
	"golang.org/x/xerrors"
)

// ID uniquely identifies a job. Two IDs compare equal only if they were
// allocated by the same allocator and share the same sequence number.
type ID struct {
	// Nonce identifies the allocator instance that minted this ID.
	Nonce uint64
	// Sequence is monotonically increasing per allocator.
	Sequence uint64
}

// Less orders IDs first by allocator nonce, then by sequence.
func (id ID) Less(other ID) bool {
	if id.Nonce != other.Nonce {
		return id.Nonce < other.Nonce
	}
	return id.Sequence < other.Sequence
}

// IDAllocator mints unique, monotonically increasing job IDs. The zero value
// is not usable; create one with NewIDAllocator.
type IDAllocator struct {
	nonce uint64
	next  uint64
}

// NewIDAllocator creates an allocator with a nonce drawn from a strong source
// of randomness, so that IDs minted by distinct allocators never collide.
func NewIDAllocator() (*IDAllocator, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, xerrors.Errorf("unable to seed job ID allocator: %w", err)
	}
	return &IDAllocator{nonce: binary.BigEndian.Uint64(buf[:])}, nil
}

// Next returns the next unique ID for this allocator. Safe for concurrent use.
func (a *IDAllocator) Next() ID {
	seq := atomic.AddUint64(&a.next, 1) - 1
	return ID{Nonce: a.nonce, Sequence: seq}
}

// Configuration controls how a job is partitioned and rendered.
type Configuration struct {
	// SampleRoot is the per-axis sample count used by the sampler (samples
	// per pixel is SampleRoot^2).
	SampleRoot int
	// MaxTraceDepth bounds recursive ray tracing (reflections/refractions).
	MaxTraceDepth int
	// RowsPerWorkUnit is the number of image rows handed to a worker at a
	// time.
	RowsPerWorkUnit int
}

// Validate checks that the configuration describes a legal job. An invalid
// configuration is a construction-time error; it is never discovered later.
func (c Configuration) Validate() error {
	if c.SampleRoot < 1 {
		return xerrors.Errorf("sample_root must be >= 1, got %d", c.SampleRoot)
	}
	if c.MaxTraceDepth < 1 {
		return xerrors.Errorf("max_trace_depth must be >= 1, got %d", c.MaxTraceDepth)
	}
	if c.RowsPerWorkUnit < 1 {
		return xerrors.Errorf("rows_per_work_unit must be >= 1, got %d", c.RowsPerWorkUnit)
	}
	return nil
}

// WorkUnit describes a contiguous, inclusive band of image rows belonging to
// one job.
type WorkUnit struct {
	JobID    ID
	RowStart int
	RowEnd   int
}

// NumRows returns the number of rows covered by this unit.
func (u WorkUnit) NumRows() int {
	return u.RowEnd - u.RowStart + 1
}

// WorkUnitResult is the tracer's output for one WorkUnit: Rows holds exactly
// NumRows() rows, each of image_width pixels, indexed relative to RowStart
// (row i of Rows corresponds to image row WorkUnit.RowStart+i).
type WorkUnitResult struct {
	WorkUnit WorkUnit
	Rows     [][]scene.Color
}

// EventKind tags the variant held by a RenderEvent.
type EventKind string

const (
	EventImageInfo         EventKind = "image_info"
	EventRenderingStarted  EventKind = "rendering_started"
	EventRowsReady         EventKind = "rows_ready"
	EventRenderingFinished EventKind = "rendering_finished"
)

// RenderEvent is a tagged union over the four event shapes a job's render
// produces. Exactly one ImageInfo is emitted first, followed by exactly one
// RenderingStarted, followed by zero or more RowsReady in arbitrary order,
// followed by exactly one RenderingFinished.
type RenderEvent struct {
	Kind EventKind
	JobID ID

	// ImageInfo fields.
	SceneName string
	Width     int
	Height    int

	// RenderingStarted / RenderingFinished fields.
	WallTime time.Time

	// RowsReady field.
	Result WorkUnitResult
}

// ImageInfoEvent constructs an ImageInfo RenderEvent.
func ImageInfoEvent(id ID, sceneName string, width, height int) RenderEvent {
	return RenderEvent{Kind: EventImageInfo, JobID: id, SceneName: sceneName, Width: width, Height: height}
}

// RenderingStartedEvent constructs a RenderingStarted RenderEvent.
func RenderingStartedEvent(id ID, at time.Time) RenderEvent {
	return RenderEvent{Kind: EventRenderingStarted, JobID: id, WallTime: at}
}

// RowsReadyEvent constructs a RowsReady RenderEvent.
func RowsReadyEvent(id ID, result WorkUnitResult) RenderEvent {
	return RenderEvent{Kind: EventRowsReady, JobID: id, Result: result}
}

// RenderingFinishedEvent constructs a RenderingFinished RenderEvent.
func RenderingFinishedEvent(id ID, at time.Time) RenderEvent {
	return RenderEvent{Kind: EventRenderingFinished, JobID: id, WallTime: at}
}

// Job is an immutable description of one render: a scene plus the
// configuration it is rendered with. Jobs are sent by value to every worker.
type Job struct {
	ID        ID
	SceneData scene.Data
	Config    Configuration
}

// WorkUnits partitions [0, image_height) into contiguous, non-overlapping,
// order-preserving work units of at most Config.RowsPerWorkUnit rows each.
// The final unit may be shorter. Emitting zero units is only legal when
// image_height == 0.
func (j Job) WorkUnits() []WorkUnit {
	if j.Config.RowsPerWorkUnit <= 0 {
		panic("job: rows_per_work_unit must be >= 1")
	}

	height := j.SceneData.OutputSettings.ImageHeight
	var units []WorkUnit
	for start := 0; start < height; start += j.Config.RowsPerWorkUnit {
		end := start + j.Config.RowsPerWorkUnit - 1
		if end > height-1 {
			end = height - 1
		}
		units = append(units, WorkUnit{JobID: j.ID, RowStart: start, RowEnd: end})
	}
	return units
}
