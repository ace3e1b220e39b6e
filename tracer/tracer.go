// Package tracer is the pure-compute leaf of the render pipeline: it turns a
// scene plus a work unit into pixel rows. It knows nothing about jobs,
// workers, queues or the network; everything here is deterministic given its
// inputs (up to the sampler, which none of these kernels use yet).
package tracer

import (
	"context"
	"math"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks_tracer.go github.com/jtdaugherty/fluxgo/tracer Tracer

// Tracer renders one work unit's rows against a built Scene. Implementations
// must be safe for concurrent use by multiple goroutines, since a shared
// data-parallel pool may invoke Render for many units at once.
type Tracer interface {
	Render(ctx context.Context, sc *Scene, unit job.WorkUnit) (job.WorkUnitResult, error)
}

// Camera is a right-handed orthonormal basis built from scene.CameraSettings,
// following the eye/look_at/up construction in the original tracer: w points
// from the look-at point to the eye, u is perpendicular to w and "up", v
// completes the frame.
type Camera struct {
	Eye, U, V, W scene.Vector3
	Params       scene.CameraParams
}

// Scene is the built, ready-to-render form of scene.Data plus the
// configuration it's rendered with: camera basis computed once, shapes kept
// as-is for the kernel to intersect.
type Scene struct {
	Data   scene.Data
	Camera Camera
	Config job.Configuration
}

// Build validates data and constructs a Scene, computing the camera basis
// once so every subsequent Render call reuses it. cfg is the job
// configuration the scene is rendered under (sample root, max trace depth).
func Build(data scene.Data, cfg job.Configuration) (*Scene, error) {
	if err := data.Validate(); err != nil {
		return nil, xerrors.Errorf("tracer: invalid scene: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("tracer: invalid configuration: %w", err)
	}

	eye := data.CameraSettings.Eye
	w := normalize(sub(eye, data.CameraSettings.LookAt))
	u := normalize(cross(data.CameraSettings.Up, w))
	v := cross(w, u)

	return &Scene{
		Data: data,
		Camera: Camera{
			Eye:    eye,
			U:      u,
			V:      v,
			W:      w,
			Params: data.CameraParams,
		},
		Config: cfg,
	}, nil
}

func sub(a, b scene.Vector3) scene.Vector3 {
	return scene.Vector3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func cross(a, b scene.Vector3) scene.Vector3 {
	return scene.Vector3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func dot(a, b scene.Vector3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func length(a scene.Vector3) float64 {
	return math.Sqrt(dot(a, a))
}

func normalize(a scene.Vector3) scene.Vector3 {
	l := length(a)
	if l == 0 {
		return a
	}
	return scene.Vector3{X: a.X / l, Y: a.Y / l, Z: a.Z / l}
}
