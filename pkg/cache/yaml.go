package cache

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// yamlObject mirrors one object of a YAML fixture cache.
type yamlObject struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Start      float64        `yaml:"start"`
	Interval   float64        `yaml:"interval"`
	Properties []yamlProperty `yaml:"properties"`
	Samples    []yaml.Node    `yaml:"samples"`
	Children   []yamlObject   `yaml:"children"`
}

type yamlProperty struct {
	Name string    `yaml:"name"`
	Type string    `yaml:"type"`
	Data []float64 `yaml:"data"`
}

type yamlXform struct {
	Translation [3]float32  `yaml:"translation"`
	Rotation    *[4]float32 `yaml:"rotation"` // x, y, z, w
	Scale       *[3]float32 `yaml:"scale"`
	Inherits    *bool       `yaml:"inherits"`
}

type yamlCamera struct {
	Near               float32 `yaml:"near"`
	Far                float32 `yaml:"far"`
	FocalLength        float32 `yaml:"focal_length"`
	FocusDistance      float32 `yaml:"focus_distance"`
	HorizontalAperture float32 `yaml:"horizontal_aperture"`
	VerticalAperture   float32 `yaml:"vertical_aperture"`
}

type yamlFaceSet struct {
	Name       string  `yaml:"name"`
	FaceCounts []int32 `yaml:"face_counts"`
	Indices    []int32 `yaml:"indices"`
}

type yamlMesh struct {
	Positions  [][3]float32  `yaml:"positions"`
	Velocities [][3]float32  `yaml:"velocities"`
	Normals    [][3]float32  `yaml:"normals"`
	Tangents   [][4]float32  `yaml:"tangents"`
	UV0        [][2]float32  `yaml:"uv0"`
	UV1        [][2]float32  `yaml:"uv1"`
	Colors     [][4]float32  `yaml:"colors"`
	FaceSets   []yamlFaceSet `yaml:"face_sets"`
}

type yamlPoints struct {
	Positions  [][3]float32 `yaml:"positions"`
	Velocities [][3]float32 `yaml:"velocities"`
	IDs        []uint64     `yaml:"ids"`
}

type yamlDocument struct {
	Objects []yamlObject `yaml:"objects"`
}

// LoadYAML reads a fixture cache from a YAML file.
func LoadYAML(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return a, nil
}

// ParseYAML builds an archive from YAML fixture data.
func ParseYAML(data []byte) (*Archive, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	a := NewArchive()
	for i := range doc.Objects {
		if err := addYAMLObject(a.root, &doc.Objects[i]); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func addYAMLObject(parent *Node, obj *yamlObject) error {
	kind, err := ParseKind(obj.Kind)
	if err != nil {
		return fmt.Errorf("object %q: %w", obj.Name, err)
	}

	ts := TimeSampling{Start: obj.Start, Interval: obj.Interval}
	var n *Node

	switch kind {
	case KindNone:
		n = parent.AddChild(obj.Name)
	case KindXform:
		samples := make([]*XformSample, len(obj.Samples))
		for i := range obj.Samples {
			var y yamlXform
			if err := obj.Samples[i].Decode(&y); err != nil {
				return fmt.Errorf("object %q sample %d: %w", obj.Name, i, err)
			}
			samples[i] = y.toSample()
		}
		n = parent.AddXform(obj.Name, ts, samples...)
	case KindCamera:
		samples := make([]*CameraSample, len(obj.Samples))
		for i := range obj.Samples {
			var y yamlCamera
			if err := obj.Samples[i].Decode(&y); err != nil {
				return fmt.Errorf("object %q sample %d: %w", obj.Name, i, err)
			}
			samples[i] = &CameraSample{
				NearClippingPlane:  y.Near,
				FarClippingPlane:   y.Far,
				FocalLength:        y.FocalLength,
				FocusDistance:      y.FocusDistance,
				HorizontalAperture: y.HorizontalAperture,
				VerticalAperture:   y.VerticalAperture,
			}
		}
		n = parent.AddCamera(obj.Name, ts, samples...)
	case KindPolyMesh:
		samples := make([]*MeshSample, len(obj.Samples))
		for i := range obj.Samples {
			var y yamlMesh
			if err := obj.Samples[i].Decode(&y); err != nil {
				return fmt.Errorf("object %q sample %d: %w", obj.Name, i, err)
			}
			samples[i] = y.toSample()
		}
		n = parent.AddMesh(obj.Name, ts, samples...)
	case KindPoints:
		samples := make([]*PointsSample, len(obj.Samples))
		for i := range obj.Samples {
			var y yamlPoints
			if err := obj.Samples[i].Decode(&y); err != nil {
				return fmt.Errorf("object %q sample %d: %w", obj.Name, i, err)
			}
			samples[i] = &PointsSample{
				Positions:  vec3s(y.Positions),
				Velocities: vec3s(y.Velocities),
				IDs:        y.IDs,
			}
		}
		n = parent.AddPoints(obj.Name, ts, samples...)
	}

	for _, p := range obj.Properties {
		pt, err := ParsePropertyType(p.Type)
		if err != nil {
			return fmt.Errorf("object %q property %q: %w", obj.Name, p.Name, err)
		}
		n.props = append(n.props, Property{Name: p.Name, Type: pt, Data: p.Data})
	}

	for i := range obj.Children {
		if err := addYAMLObject(n, &obj.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (y *yamlXform) toSample() *XformSample {
	s := &XformSample{
		Translation: mgl32.Vec3(y.Translation),
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
		Inherits:    true,
	}
	if y.Rotation != nil {
		r := *y.Rotation
		s.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if y.Scale != nil {
		s.Scale = mgl32.Vec3(*y.Scale)
	}
	if y.Inherits != nil {
		s.Inherits = *y.Inherits
	}
	return s
}

func (y *yamlMesh) toSample() *MeshSample {
	s := &MeshSample{
		Positions:  vec3s(y.Positions),
		Velocities: vec3s(y.Velocities),
		Normals:    vec3s(y.Normals),
		UV0:        vec2s(y.UV0),
		UV1:        vec2s(y.UV1),
		Tangents:   vec4s(y.Tangents),
		Colors:     vec4s(y.Colors),
	}
	for _, fs := range y.FaceSets {
		s.FaceSets = append(s.FaceSets, FaceSet{
			Name:       fs.Name,
			FaceCounts: fs.FaceCounts,
			Indices:    fs.Indices,
		})
	}
	return s
}

func vec2s(in [][2]float32) []mgl32.Vec2 {
	if len(in) == 0 {
		return nil
	}
	out := make([]mgl32.Vec2, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec2(v)
	}
	return out
}

func vec3s(in [][3]float32) []mgl32.Vec3 {
	if len(in) == 0 {
		return nil
	}
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec3(v)
	}
	return out
}

func vec4s(in [][4]float32) []mgl32.Vec4 {
	if len(in) == 0 {
		return nil
	}
	out := make([]mgl32.Vec4, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec4(v)
	}
	return out
}
