package main

import "github.com/jtdaugherty/fluxgo/scene"

// demoScene returns a small built-in scene (one matte sphere lit by an
// emissive sphere, over a matte floor plane) so the driver has
// something to render without a -scene file. YAML/JSON scene loading beyond
// this -scene flag's plain os.Open+json.Decode is out of scope; this exists
// so `flux` produces a real image out of the box.
func demoScene() scene.Data {
	return scene.Data{
		Name: "demo",
		OutputSettings: scene.OutputSettings{
			ImageWidth:  400,
			ImageHeight: 300,
			PixelSize:   1.0,
		},
		Background: scene.Color{R: 0.05, G: 0.05, B: 0.08},
		CameraSettings: scene.CameraSettings{
			Eye:    scene.Vector3{X: 0, Y: 2, Z: 8},
			LookAt: scene.Vector3{X: 0, Y: 0, Z: 0},
			Up:     scene.Vector3{X: 0, Y: 1, Z: 0},
		},
		CameraParams: scene.CameraParams{
			Zoom:              1.0,
			ViewPlaneDistance: 4.0,
			FocalDistance:     8.0,
			LensRadius:        0,
		},
		Shapes: []scene.ShapeDescription{
			{
				Kind:   scene.ShapeSphere,
				Sphere: &scene.SphereShape{Center: scene.Vector3{X: 0, Y: 0, Z: 0}, Radius: 1.5},
				Material: scene.MaterialDescription{
					Kind:  scene.MaterialMatte,
					Matte: &scene.MatteMaterial{Color: scene.Color{R: 0.8, G: 0.2, B: 0.2}, Ka: 0.1, Kd: 0.9},
				},
			},
			{
				Kind:   scene.ShapeSphere,
				Sphere: &scene.SphereShape{Center: scene.Vector3{X: -3, Y: 4, Z: 4}, Radius: 0.5},
				Material: scene.MaterialDescription{
					Kind:     scene.MaterialEmissive,
					Emissive: &scene.EmissiveMaterial{Color: scene.Color{R: 1, G: 1, B: 0.95}, Radiance: 4},
				},
			},
			{
				Kind:  scene.ShapePlane,
				Plane: &scene.PlaneShape{Point: scene.Vector3{X: 0, Y: -1.5, Z: 0}, Normal: scene.Vector3{X: 0, Y: 1, Z: 0}},
				Material: scene.MaterialDescription{
					Kind:  scene.MaterialMatte,
					Matte: &scene.MatteMaterial{Color: scene.Color{R: 0.6, G: 0.6, B: 0.6}, Ka: 0.1, Kd: 0.8},
				},
			},
		},
	}
}
