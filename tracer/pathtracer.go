package tracer

import (
	"context"
	"math"

	"github.com/jtdaugherty/fluxgo/job"
	"github.com/jtdaugherty/fluxgo/scene"
)

// ray is a parametric line, local to this package: origin + t*dir.
type ray struct {
	Origin, Dir scene.Vector3
}

func (r ray) at(t float64) scene.Vector3 {
	return scene.Vector3{
		X: r.Origin.X + t*r.Dir.X,
		Y: r.Origin.Y + t*r.Dir.Y,
		Z: r.Origin.Z + t*r.Dir.Z,
	}
}

// tMin avoids self-intersection at the ray's origin (shadow/reflection acne).
const tMin = 1e-6

type hit struct {
	T      float64
	Point  scene.Vector3
	Normal scene.Vector3
	Shape  *scene.ShapeDescription
}

// PathTracer is the minimal concrete kernel satisfying the C2 contract:
// single ray per pixel (optionally supersampled on a fixed grid), matte
// shading with an ambient term, and a recursive mirror bounce for reflective
// materials that continues until MaxTraceDepth is exceeded (glossy materials
// take the same mirror bounce; their Exponent is not used). It is intentionally the simplest kernel that produces dense,
// correctly clamped rows; it is not a full Monte-Carlo path tracer.
type PathTracer struct{}

// NewPathTracer returns the default kernel.
func NewPathTracer() *PathTracer {
	return &PathTracer{}
}

// Render implements Tracer.
func (t *PathTracer) Render(ctx context.Context, sc *Scene, unit job.WorkUnit) (job.WorkUnitResult, error) {
	width := sc.Data.OutputSettings.ImageWidth
	rows := make([][]scene.Color, unit.NumRows())

	for i := 0; i < unit.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return job.WorkUnitResult{}, err
		}

		imgRow := unit.RowStart + i
		row := make([]scene.Color, width)
		for x := 0; x < width; x++ {
			row[x] = t.shadePixel(sc, x, imgRow)
		}
		rows[i] = row
	}

	return job.WorkUnitResult{WorkUnit: unit, Rows: rows}, nil
}

func (t *PathTracer) shadePixel(sc *Scene, px, py int) scene.Color {
	root := sc.Data.OutputSettings.PixelSize
	out := sc.Data.OutputSettings
	cam := sc.Camera

	sampleRoot := sc.Config.SampleRoot
	if sampleRoot < 1 {
		sampleRoot = 1
	}
	sum := scene.Black
	step := 1.0 / float64(sampleRoot)
	for sy := 0; sy < sampleRoot; sy++ {
		for sx := 0; sx < sampleRoot; sx++ {
			fx := float64(px) + (float64(sx)+0.5)*step
			fy := float64(py) + (float64(sy)+0.5)*step
			u := root * (fx - 0.5*float64(out.ImageWidth)) * cam.Params.Zoom
			v := root * (0.5*float64(out.ImageHeight) - fy) * cam.Params.Zoom
			dir := rayDirection(cam, u, v)
			r := ray{Origin: cam.Eye, Dir: dir}
			sum = sum.Add(t.traceRay(sc, r, 1))
		}
	}

	n := float64(sampleRoot * sampleRoot)
	return sum.Scale(1 / n).Clamp()
}

func rayDirection(cam Camera, u, v float64) scene.Vector3 {
	d := scene.Vector3{
		X: u*cam.U.X + v*cam.V.X - cam.Params.ViewPlaneDistance*cam.W.X,
		Y: u*cam.U.Y + v*cam.V.Y - cam.Params.ViewPlaneDistance*cam.W.Y,
		Z: u*cam.U.Z + v*cam.V.Z - cam.Params.ViewPlaneDistance*cam.W.Z,
	}
	return normalize(d)
}

func (t *PathTracer) traceRay(sc *Scene, r ray, depth int) scene.Color {
	if depth > sc.Config.MaxTraceDepth {
		return scene.Black
	}

	h, ok := closestHit(sc, r)
	if !ok {
		return sc.Data.Background
	}

	return t.shade(sc, r, h, depth)
}

func closestHit(sc *Scene, r ray) (hit, bool) {
	var best hit
	found := false

	for i := range sc.Data.Shapes {
		shp := &sc.Data.Shapes[i]
		if h, ok := intersect(shp, r); ok {
			if !found || h.T < best.T {
				best = h
				found = true
			}
		}
	}

	return best, found
}

func intersect(shp *scene.ShapeDescription, r ray) (hit, bool) {
	switch shp.Kind {
	case scene.ShapeSphere:
		return intersectSphere(shp, r)
	case scene.ShapePlane:
		return intersectPlane(shp, r)
	default:
		return hit{}, false
	}
}

func intersectSphere(shp *scene.ShapeDescription, r ray) (hit, bool) {
	s := shp.Sphere
	temp := sub(r.Origin, s.Center)
	a := dot(r.Dir, r.Dir)
	b := 2 * dot(temp, r.Dir)
	c := dot(temp, temp) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return hit{}, false
	}

	e := math.Sqrt(disc)
	denom := 2 * a
	t := (-b - e) / denom
	if t <= tMin {
		t = (-b + e) / denom
		if t <= tMin {
			return hit{}, false
		}
	}

	p := r.at(t)
	n := normalize(scene.Vector3{
		X: (p.X - s.Center.X) / s.Radius,
		Y: (p.Y - s.Center.Y) / s.Radius,
		Z: (p.Z - s.Center.Z) / s.Radius,
	})
	return hit{T: t, Point: p, Normal: n, Shape: shp}, true
}

func intersectPlane(shp *scene.ShapeDescription, r ray) (hit, bool) {
	pl := shp.Plane
	denom := dot(r.Dir, pl.Normal)
	if denom == 0 {
		return hit{}, false
	}
	t := dot(sub(pl.Point, r.Origin), pl.Normal) / denom
	if t <= tMin {
		return hit{}, false
	}
	return hit{T: t, Point: r.at(t), Normal: pl.Normal, Shape: shp}, true
}

func (t *PathTracer) shade(sc *Scene, r ray, h hit, depth int) scene.Color {
	mat := h.Shape.Material
	switch mat.Kind {
	case scene.MaterialEmissive:
		return mat.Emissive.Color.Scale(mat.Emissive.Radiance)
	case scene.MaterialMatte:
		return t.shadeMatte(sc, h, mat.Matte)
	case scene.MaterialPerfectReflective:
		return t.shadeReflective(sc, r, h, mat.PerfectReflective.Color, mat.PerfectReflective.Kr, depth)
	case scene.MaterialGlossyReflective:
		return t.shadeReflective(sc, r, h, mat.GlossyReflective.Color, mat.GlossyReflective.Kr, depth)
	default:
		return scene.Black
	}
}

func (t *PathTracer) shadeMatte(sc *Scene, h hit, m *scene.MatteMaterial) scene.Color {
	ambient := m.Color.Scale(m.Ka)

	diffuse := scene.Black
	for i := range sc.Data.Shapes {
		light := &sc.Data.Shapes[i]
		if light.Material.Kind != scene.MaterialEmissive {
			continue
		}
		lightPoint := lightCenter(light)
		toLight := normalize(sub(lightPoint, h.Point))
		ndotl := dot(h.Normal, toLight)
		if ndotl <= 0 {
			continue
		}
		shadowRay := ray{Origin: h.Point, Dir: toLight}
		if _, blocked := closestHit(sc, shadowRay); blocked {
			continue
		}
		contrib := m.Color.Scale(m.Kd).Mul(light.Material.Emissive.Color.Scale(light.Material.Emissive.Radiance)).Scale(ndotl)
		diffuse = diffuse.Add(contrib)
	}

	return ambient.Add(diffuse)
}

func lightCenter(shp *scene.ShapeDescription) scene.Vector3 {
	switch shp.Kind {
	case scene.ShapeSphere:
		return shp.Sphere.Center
	case scene.ShapePlane:
		return shp.Plane.Point
	default:
		return scene.Vector3{}
	}
}

func (t *PathTracer) shadeReflective(sc *Scene, r ray, h hit, color scene.Color, kr float64, depth int) scene.Color {
	ndotwo := dot(h.Normal, scale(r.Dir, -1))
	reflectDir := normalize(sub(scale(h.Normal, 2*ndotwo), scale(r.Dir, -1)))
	reflected := t.traceRay(sc, ray{Origin: h.Point, Dir: reflectDir}, depth+1)
	return reflected.Mul(color).Scale(kr)
}

func scale(v scene.Vector3, k float64) scene.Vector3 {
	return scene.Vector3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}
