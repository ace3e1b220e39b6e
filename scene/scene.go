// Package scene holds the serializable scene description. The control plane
// treats Data as opaque except for OutputSettings/Name: it is shipped whole
// to every worker and interpreted only by the tracer leaf (package tracer).
package scene

import "golang.org/x/xerrors"

// Vector3 is a 3-component vector/point, used for both directions and
// positions throughout the scene description.
type Vector3 struct {
	X, Y, Z float64
}

// OutputSettings describes the pixel grid a job renders into.
type OutputSettings struct {
	ImageWidth  int
	ImageHeight int
	PixelSize   float64
}

// CameraSettings places the camera in world space.
type CameraSettings struct {
	Eye    Vector3
	LookAt Vector3
	Up     Vector3
}

// CameraParams carries the camera's optical parameters.
type CameraParams struct {
	Zoom              float64
	ViewPlaneDistance float64
	FocalDistance     float64
	LensRadius        float64
}

// MaterialKind tags the variant held by a MaterialDescription.
type MaterialKind string

const (
	MaterialMatte             MaterialKind = "matte"
	MaterialEmissive          MaterialKind = "emissive"
	MaterialPerfectReflective MaterialKind = "perfect_reflective"
	MaterialGlossyReflective  MaterialKind = "glossy_reflective"
)

// MatteMaterial is a Lambertian diffuse surface.
type MatteMaterial struct {
	Color Color
	Ka    float64 // ambient reflection coefficient
	Kd    float64 // diffuse reflection coefficient
}

// EmissiveMaterial is a light-emitting surface.
type EmissiveMaterial struct {
	Color     Color
	Radiance  float64
}

// PerfectReflectiveMaterial is a mirror surface.
type PerfectReflectiveMaterial struct {
	Color Color
	Kr    float64 // reflection coefficient
}

// GlossyReflectiveMaterial is a rough mirror surface.
type GlossyReflectiveMaterial struct {
	Color     Color
	Kr        float64
	Exponent  float64 // specular lobe exponent
}

// MaterialDescription is a tagged union over the supported material kinds.
// Exactly one of the pointer fields matching Kind is non-nil; this is a sum
// type rendered as a Go struct (rather than the original's unsafe union) so
// it round-trips cleanly through CBOR.
type MaterialDescription struct {
	Kind               MaterialKind
	Matte              *MatteMaterial              `cbor:"matte,omitempty"`
	Emissive           *EmissiveMaterial           `cbor:"emissive,omitempty"`
	PerfectReflective  *PerfectReflectiveMaterial  `cbor:"perfect_reflective,omitempty"`
	GlossyReflective   *GlossyReflectiveMaterial   `cbor:"glossy_reflective,omitempty"`
}

// Validate checks that exactly the field matching Kind is populated.
func (m MaterialDescription) Validate() error {
	switch m.Kind {
	case MaterialMatte:
		if m.Matte == nil {
			return xerrors.Errorf("material kind %q missing matte data", m.Kind)
		}
	case MaterialEmissive:
		if m.Emissive == nil {
			return xerrors.Errorf("material kind %q missing emissive data", m.Kind)
		}
	case MaterialPerfectReflective:
		if m.PerfectReflective == nil {
			return xerrors.Errorf("material kind %q missing perfect-reflective data", m.Kind)
		}
	case MaterialGlossyReflective:
		if m.GlossyReflective == nil {
			return xerrors.Errorf("material kind %q missing glossy-reflective data", m.Kind)
		}
	default:
		return xerrors.Errorf("unknown material kind %q", m.Kind)
	}
	return nil
}

// ShapeKind tags the variant held by a ShapeDescription.
type ShapeKind string

const (
	ShapeSphere ShapeKind = "sphere"
	ShapePlane  ShapeKind = "plane"
)

// SphereShape is a sphere defined by center and radius.
type SphereShape struct {
	Center Vector3
	Radius float64
}

// PlaneShape is an infinite plane defined by a point and a normal.
type PlaneShape struct {
	Point  Vector3
	Normal Vector3
}

// ShapeDescription is a tagged union over the supported shape kinds, each
// carrying an inline material description.
type ShapeDescription struct {
	Kind     ShapeKind
	Sphere   *SphereShape `cbor:"sphere,omitempty"`
	Plane    *PlaneShape  `cbor:"plane,omitempty"`
	Material MaterialDescription
}

// Validate checks that exactly the field matching Kind is populated and that
// the inline material is itself valid.
func (s ShapeDescription) Validate() error {
	switch s.Kind {
	case ShapeSphere:
		if s.Sphere == nil {
			return xerrors.Errorf("shape kind %q missing sphere data", s.Kind)
		}
	case ShapePlane:
		if s.Plane == nil {
			return xerrors.Errorf("shape kind %q missing plane data", s.Kind)
		}
	default:
		return xerrors.Errorf("unknown shape kind %q", s.Kind)
	}
	return s.Material.Validate()
}

// Data is the serializable scene description shipped whole to every worker.
// It is treated as opaque by the control plane except for Name and
// OutputSettings.
type Data struct {
	Name           string
	OutputSettings OutputSettings
	Background     Color
	CameraSettings CameraSettings
	CameraParams   CameraParams
	Shapes         []ShapeDescription
}

// Validate checks the scene description is well-formed enough to build a
// Scene from.
func (d Data) Validate() error {
	if d.OutputSettings.ImageWidth <= 0 || d.OutputSettings.ImageHeight < 0 {
		return xerrors.Errorf("invalid output settings: %+v", d.OutputSettings)
	}
	for i, s := range d.Shapes {
		if err := s.Validate(); err != nil {
			return xerrors.Errorf("shape %d: %w", i, err)
		}
	}
	return nil
}
