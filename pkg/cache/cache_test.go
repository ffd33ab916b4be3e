package cache

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNone, KindXform, KindCamera, KindPolyMesh, KindPoints} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindNone, k)

	_, err = ParseKind("polymesh")
	assert.Error(t, err, "names are case sensitive")
	assert.Equal(t, "Unknown(9)", Kind(9).String())
}

func TestTimeSampling(t *testing.T) {
	ts := TimeSampling{Start: 1, Interval: 0.5, Count: 5}
	assert.Equal(t, 3.0, ts.End())
	assert.Equal(t, 2.0, ts.TimeOf(2))
	assert.True(t, ts.Valid())

	assert.Equal(t, 1.0, TimeSampling{Start: 1, Count: 1}.End())
	assert.True(t, TimeSampling{Count: 1}.Valid(), "a single sample needs no interval")
	assert.False(t, TimeSampling{}.Valid())
	assert.False(t, TimeSampling{Count: 2}.Valid())
	assert.False(t, TimeSampling{Count: 2, Interval: -1}.Valid())
}

func TestMemoryNodeDefaultsInterval(t *testing.T) {
	a := NewArchive()
	n := a.RootNode().AddXform("x", TimeSampling{}, &XformSample{}, &XformSample{})
	assert.Equal(t, 2, n.TimeSampling().Count)
	assert.InDelta(t, 1.0/30.0, n.TimeSampling().Interval, 1e-12)

	one := a.RootNode().AddXform("y", TimeSampling{}, &XformSample{})
	assert.Zero(t, one.TimeSampling().Interval)
}

func TestMemoryNodeErrors(t *testing.T) {
	a := NewArchive()
	m := a.RootNode().AddMesh("m", TimeSampling{Interval: 1}, &MeshSample{})

	_, err := m.MeshSample(1)
	assert.ErrorIs(t, err, ErrSampleIndex)
	_, err = m.MeshSample(-1)
	assert.ErrorIs(t, err, ErrSampleIndex)

	_, err = m.XformSample(0)
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = m.CameraSample(0)
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = m.PointsSample(0)
	assert.ErrorIs(t, err, ErrWrongKind)

	s, err := m.MeshSample(0)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestArchiveTree(t *testing.T) {
	a := NewArchive()
	g := a.RootNode().AddChild("group")
	g.AddPoints("p", TimeSampling{}, &PointsSample{})
	g.AddCamera("c", TimeSampling{}, &CameraSample{})

	root := a.Root()
	assert.Equal(t, KindNone, root.Kind())
	require.Equal(t, 1, root.NumChildren())

	group := root.Child(0)
	assert.Equal(t, "group", group.Name())
	require.Equal(t, 2, group.NumChildren())
	assert.Equal(t, KindPoints, group.Child(0).Kind())
	assert.Equal(t, KindCamera, group.Child(1).Kind())

	_, ok := group.Child(0).(PointsSource)
	assert.True(t, ok)
}

func TestPropertyTypes(t *testing.T) {
	tests := []struct {
		typ        PropertyType
		name       string
		scalar     bool
		array      bool
		components int
	}{
		{PropertyBool, "Bool", true, false, 1},
		{PropertyFloat3, "Float3", true, false, 3},
		{PropertyFloat4x4, "Float4x4", true, false, 16},
		{PropertyFloat2Array, "Float2Array", false, true, 2},
		{PropertyUnknown, "Unknown", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.String())
			assert.Equal(t, tt.scalar, tt.typ.IsScalar())
			assert.Equal(t, tt.array, tt.typ.IsArray())
			assert.Equal(t, tt.components, tt.typ.Components())

			got, err := ParsePropertyType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got)
		})
	}

	_, err := ParsePropertyType("Float5")
	assert.Error(t, err)
}

func TestPropertyLen(t *testing.T) {
	p := Property{Name: "pts", Type: PropertyFloat3Array, Data: make([]float64, 9)}
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, 0, Property{Type: PropertyUnknown, Data: []float64{1}}.Len())
}

const fixtureYAML = `
objects:
  - name: root_xform
    kind: Xform
    interval: 0.5
    samples:
      - translation: [1, 2, 3]
        rotation: [0, 0, 0, 1]
      - translation: [4, 5, 6]
        scale: [2, 2, 2]
        inherits: false
    children:
      - name: body
        kind: PolyMesh
        properties:
          - name: tint
            type: Float3
            data: [1, 0, 0]
        samples:
          - positions: [[0, 0, 0], [1, 0, 0], [1, 1, 0]]
            uv0: [[0, 0], [1, 0], [1, 1]]
            face_sets:
              - name: skin
                face_counts: [3]
                indices: [0, 1, 2]
  - name: group
    children:
      - name: cloud
        kind: Points
        samples:
          - positions: [[0, 0, 0]]
            ids: [7]
`

func TestParseYAML(t *testing.T) {
	a, err := ParseYAML([]byte(fixtureYAML))
	require.NoError(t, err)

	root := a.Root()
	require.Equal(t, 2, root.NumChildren())

	x := root.Child(0).(XformSource)
	assert.Equal(t, TimeSampling{Interval: 0.5, Count: 2}, x.TimeSampling())
	s0, err := x.XformSample(0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, s0.Translation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, s0.Scale, "scale defaults to one")
	assert.True(t, s0.Inherits)
	s1, err := x.XformSample(1)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, s1.Scale)
	assert.False(t, s1.Inherits)
	assert.Equal(t, mgl32.QuatIdent(), s1.Rotation)

	body := root.Child(0).Child(0).(MeshSource)
	assert.Equal(t, "body", body.Name())
	require.Len(t, body.Properties(), 1)
	assert.Equal(t, PropertyFloat3, body.Properties()[0].Type)
	ms, err := body.MeshSample(0)
	require.NoError(t, err)
	assert.Len(t, ms.Positions, 3)
	assert.Len(t, ms.UV0, 3)
	assert.Nil(t, ms.Normals, "absent channels stay nil")
	require.Len(t, ms.FaceSets, 1)
	assert.Equal(t, "skin", ms.FaceSets[0].Name)

	group := root.Child(1)
	assert.Equal(t, KindNone, group.Kind())
	cloud := group.Child(0).(PointsSource)
	ps, err := cloud.PointsSample(0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, ps.IDs)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "objects: [unclosed"},
		{"kind", "objects:\n  - name: a\n    kind: Sphere\n"},
		{"property type", "objects:\n  - name: a\n    properties:\n      - name: p\n        type: Float9\n"},
		{"sample shape", "objects:\n  - name: a\n    kind: Xform\n    samples:\n      - translation: oops\n"},
		{"nested", "objects:\n  - name: a\n    children:\n      - name: b\n        kind: Nope\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(t.TempDir() + "/absent.yaml")
	assert.Error(t, err)
}
