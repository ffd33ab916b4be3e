package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/abcstream/internal/scene"
	"github.com/Faultbox/abcstream/pkg/cache"
)

func quad(x float32) ([]mgl32.Vec3, []int32) {
	return []mgl32.Vec3{{x, 0, 0}, {x, 0, 1}, {x + 1, 0, 1}, {x + 1, 0, 0}}, []int32{0, 1, 2, 3}
}

func twoQuads() *cache.MeshSample {
	p0, i0 := quad(0)
	p1, _ := quad(3)
	i1 := []int32{4, 5, 6, 7}
	return &cache.MeshSample{
		Positions: append(p0, p1...),
		UV0:       make([]mgl32.Vec2, 8),
		FaceSets: []cache.FaceSet{
			{Name: "left", FaceCounts: []int32{4}, Indices: i0},
			{Name: "right", FaceCounts: []int32{4}, Indices: i1},
		},
	}
}

func archive() *cache.Archive {
	a := cache.NewArchive()
	root := a.RootNode()
	ts := cache.TimeSampling{Interval: 1}

	geo := root.AddXform("geo", ts, &cache.XformSample{
		Translation: mgl32.Vec3{2, 0, 0},
		Rotation:    mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 2, 1},
		Inherits:    true,
	})
	geo.AddMesh("mesh", ts, twoQuads())
	root.AddPoints("pts", ts, &cache.PointsSample{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}},
	})
	p, i := quad(0)
	root.AddMesh("hidden", ts, &cache.MeshSample{
		Positions: p,
		FaceSets:  []cache.FaceSet{{FaceCounts: []int32{4}, Indices: i}},
	})
	return a
}

func resolved(t *testing.T, cfg scene.ImportConfig) *scene.Scene {
	t.Helper()
	s, err := scene.Load(context.Background(), archive(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.ApplyEnabledMask(map[string]bool{"/hidden": false}))
	require.NoError(t, s.Update(context.Background(), 0))
	return s
}

func noSwap() scene.ImportConfig {
	cfg := scene.DefaultImportConfig()
	cfg.SwapHandedness = false
	return cfg
}

func TestFrameSingleSplit(t *testing.T) {
	doc, stats, err := Frame(resolved(t, noSwap()))
	require.NoError(t, err)

	assert.Equal(t, Stats{Nodes: 3, Meshes: 2, Primitives: 2, Points: 2}, stats)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, []int{0, 2}, doc.Scenes[0].Nodes)

	geo := doc.Nodes[0]
	assert.Equal(t, "geo", geo.Name)
	assert.Equal(t, [3]float64{2, 0, 0}, geo.Translation)
	assert.Equal(t, [3]float64{1, 2, 1}, geo.Scale)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, geo.Rotation)
	assert.Equal(t, []int{1}, geo.Children)

	m := doc.Nodes[1]
	assert.Equal(t, "mesh", m.Name)
	require.NotNil(t, m.Mesh)
	prims := doc.Meshes[*m.Mesh].Primitives
	require.Len(t, prims, 2, "one primitive per face set")
	for _, p := range prims {
		assert.Contains(t, p.Attributes, gltf.POSITION)
		assert.Contains(t, p.Attributes, gltf.NORMAL, "normals are computed when missing")
		assert.Contains(t, p.Attributes, gltf.TEXCOORD_0)
		require.NotNil(t, p.Indices)
		assert.Equal(t, 6, doc.Accessors[*p.Indices].Count)
	}

	pts := doc.Nodes[2]
	require.NotNil(t, pts.Mesh)
	assert.Equal(t, gltf.PrimitivePoints, doc.Meshes[*pts.Mesh].Primitives[0].Mode)
}

func TestFrameMultiSplit(t *testing.T) {
	cfg := noSwap()
	cfg.SplitUnit = 4
	doc, stats, err := Frame(resolved(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Meshes, "two splits plus the point cloud")
	mesh := doc.Nodes[1]
	assert.Nil(t, mesh.Mesh)
	require.Len(t, mesh.Children, 2)
	for i, ci := range mesh.Children {
		child := doc.Nodes[ci]
		require.NotNil(t, child.Mesh, "split %d", i)
		pos := doc.Meshes[*child.Mesh].Primitives[0].Attributes[gltf.POSITION]
		assert.Equal(t, 4, doc.Accessors[pos].Count)
	}
}

func TestFrameHandedness(t *testing.T) {
	doc, _, err := Frame(resolved(t, scene.DefaultImportConfig()))
	require.NoError(t, err)
	assert.Equal(t, [3]float64{-2, 0, 0}, doc.Nodes[0].Translation)
}

func TestFrameBeforeUpdate(t *testing.T) {
	s, err := scene.Load(context.Background(), archive(), noSwap())
	require.NoError(t, err)
	_, _, err = Frame(s)
	assert.ErrorIs(t, err, ErrNothingResolved)
}

func TestSaveAndOpen(t *testing.T) {
	doc, _, err := Frame(resolved(t, noSwap()))
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		binary bool
	}{
		{"frame.gltf", false},
		{"nested/frame.glb", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.name)
			require.NoError(t, Save(doc, path, tc.binary))

			back, err := gltf.Open(path)
			require.NoError(t, err)
			assert.Len(t, back.Meshes, len(doc.Meshes))
			assert.Len(t, back.Nodes, len(doc.Nodes))
		})
	}
}

func TestWriteBinaryHeader(t *testing.T) {
	doc, _, err := Frame(resolved(t, noSwap()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc, true))
	assert.Equal(t, "glTF", buf.String()[:4])
}
