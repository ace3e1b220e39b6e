package scene_test

import (
	"testing"

	"github.com/jtdaugherty/fluxgo/scene"
	gc "gopkg.in/check.v1"
)

func Test(t *testing.T) { gc.TestingT(t) }

var _ = gc.Suite(new(SceneTestSuite))

type SceneTestSuite struct{}

func (s *SceneTestSuite) TestMaterialDescriptionValidate(c *gc.C) {
	matte := scene.MaterialDescription{Kind: scene.MaterialMatte, Matte: &scene.MatteMaterial{}}
	c.Assert(matte.Validate(), gc.IsNil)

	missing := scene.MaterialDescription{Kind: scene.MaterialMatte}
	c.Assert(missing.Validate(), gc.NotNil)

	unknown := scene.MaterialDescription{Kind: "glass"}
	c.Assert(unknown.Validate(), gc.NotNil)
}

func (s *SceneTestSuite) TestShapeDescriptionValidate(c *gc.C) {
	valid := scene.ShapeDescription{
		Kind:   scene.ShapeSphere,
		Sphere: &scene.SphereShape{Radius: 1},
		Material: scene.MaterialDescription{
			Kind:  scene.MaterialEmissive,
			Emissive: &scene.EmissiveMaterial{Radiance: 1},
		},
	}
	c.Assert(valid.Validate(), gc.IsNil)

	missingShape := scene.ShapeDescription{
		Kind: scene.ShapePlane,
		Material: scene.MaterialDescription{
			Kind:     scene.MaterialEmissive,
			Emissive: &scene.EmissiveMaterial{Radiance: 1},
		},
	}
	c.Assert(missingShape.Validate(), gc.NotNil)

	invalidMaterial := scene.ShapeDescription{
		Kind:   scene.ShapeSphere,
		Sphere: &scene.SphereShape{Radius: 1},
	}
	c.Assert(invalidMaterial.Validate(), gc.NotNil)
}

func (s *SceneTestSuite) TestDataValidate(c *gc.C) {
	good := scene.Data{
		OutputSettings: scene.OutputSettings{ImageWidth: 10, ImageHeight: 10},
		Shapes: []scene.ShapeDescription{
			{
				Kind:   scene.ShapeSphere,
				Sphere: &scene.SphereShape{Radius: 1},
				Material: scene.MaterialDescription{
					Kind:     scene.MaterialEmissive,
					Emissive: &scene.EmissiveMaterial{Radiance: 1},
				},
			},
		},
	}
	c.Assert(good.Validate(), gc.IsNil)

	badOutput := good
	badOutput.OutputSettings = scene.OutputSettings{ImageWidth: 0, ImageHeight: 10}
	c.Assert(badOutput.Validate(), gc.NotNil)

	badShape := good
	badShape.Shapes = []scene.ShapeDescription{{Kind: "cube"}}
	c.Assert(badShape.Validate(), gc.NotNil)
}

func (s *SceneTestSuite) TestColorArithmetic(c *gc.C) {
	a := scene.Color{R: 0.5, G: 0.5, B: 0.5}
	c.Assert(a.Add(a), gc.Equals, scene.Color{R: 1, G: 1, B: 1})
	c.Assert(a.Scale(2), gc.Equals, scene.Color{R: 1, G: 1, B: 1})
	c.Assert(a.Mul(scene.Color{R: 2, G: 2, B: 2}), gc.Equals, scene.Color{R: 1, G: 1, B: 1})
	c.Assert(scene.Color{R: 2, G: -1, B: 0.5}.Clamp(), gc.Equals, scene.Color{R: 1, G: 0, B: 0.5})
}
