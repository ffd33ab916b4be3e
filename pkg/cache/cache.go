// Package cache defines the contract between the import pipeline and a
// time-sampled scene cache reader, plus an in-memory reader used for
// fixtures and tests.
//
// A reader decodes the cache file; everything here is already resident
// per-sample data addressable by stored index.
package cache

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Reader errors.
var (
	ErrSampleIndex = errors.New("sample index out of range")
	ErrWrongKind   = errors.New("object has a different schema kind")
)

// Kind identifies the schema attached to an object.
type Kind int

const (
	KindNone Kind = iota
	KindXform
	KindCamera
	KindPolyMesh
	KindPoints
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindXform:
		return "Xform"
	case KindCamera:
		return "Camera"
	case KindPolyMesh:
		return "PolyMesh"
	case KindPoints:
		return "Points"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// ParseKind converts a kind name (case sensitive, as printed by String).
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "None":
		return KindNone, nil
	case "Xform":
		return KindXform, nil
	case "Camera":
		return KindCamera, nil
	case "PolyMesh":
		return KindPolyMesh, nil
	case "Points":
		return KindPoints, nil
	}
	return KindNone, fmt.Errorf("unknown schema kind %q", s)
}

// TimeSampling describes when an object's samples were stored.
// Samples are uniformly spaced, starting at Start.
type TimeSampling struct {
	Start    float64
	Interval float64
	Count    int
}

// End returns the time of the last stored sample.
func (ts TimeSampling) End() float64 {
	if ts.Count <= 1 {
		return ts.Start
	}
	return ts.Start + ts.Interval*float64(ts.Count-1)
}

// TimeOf returns the time at which stored sample i was taken.
func (ts TimeSampling) TimeOf(i int) float64 {
	return ts.Start + ts.Interval*float64(i)
}

// Valid reports whether the sampling is usable for time lookups.
func (ts TimeSampling) Valid() bool {
	if ts.Count <= 0 {
		return false
	}
	if ts.Count > 1 && (ts.Interval <= 0 || gomath.IsNaN(ts.Interval) || gomath.IsInf(ts.Interval, 0)) {
		return false
	}
	return !gomath.IsNaN(ts.Start) && !gomath.IsInf(ts.Start, 0)
}

// Reader is the root of a decoded cache.
type Reader interface {
	Root() Object
}

// Object is a node of the cached hierarchy. Children are returned in
// file order.
type Object interface {
	Name() string
	Kind() Kind
	NumChildren() int
	Child(i int) Object
	TimeSampling() TimeSampling
	Properties() []Property
}

// XformSource is implemented by objects of KindXform.
type XformSource interface {
	Object
	XformSample(index int) (*XformSample, error)
}

// CameraSource is implemented by objects of KindCamera.
type CameraSource interface {
	Object
	CameraSample(index int) (*CameraSample, error)
}

// MeshSource is implemented by objects of KindPolyMesh.
type MeshSource interface {
	Object
	MeshSample(index int) (*MeshSample, error)
}

// PointsSource is implemented by objects of KindPoints.
type PointsSource interface {
	Object
	PointsSample(index int) (*PointsSample, error)
}

// XformSample is a stored local transform.
type XformSample struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	Inherits    bool
}

// CameraSample holds stored lens and clipping parameters.
type CameraSample struct {
	NearClippingPlane  float32
	FarClippingPlane   float32
	FocalLength        float32 // mm
	FocusDistance      float32 // cm
	HorizontalAperture float32 // cm
	VerticalAperture   float32 // cm
}

// FaceSet is a group of polygons sharing a material. FaceCounts holds the
// corner count of each polygon; Indices holds the corners back to back.
type FaceSet struct {
	Name       string
	FaceCounts []int32
	Indices    []int32
}

// MeshSample is one stored polygon mesh sample. Attribute channels are
// per-vertex and either empty or exactly len(Positions) long.
type MeshSample struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
	Normals    []mgl32.Vec3
	Tangents   []mgl32.Vec4
	UV0        []mgl32.Vec2
	UV1        []mgl32.Vec2
	Colors     []mgl32.Vec4
	FaceSets   []FaceSet
}

// PointsSample is one stored point cloud sample.
type PointsSample struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
	IDs        []uint64
}
