// Package export writes the resolved state of a scene as glTF.
package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/abcstream/internal/logger"
	"github.com/Faultbox/abcstream/internal/scene"
)

// ErrNothingResolved is returned when no schema has a resolved sample.
var ErrNothingResolved = errors.New("no resolved samples to export")

// Stats counts what a document holds.
type Stats struct {
	Nodes      int
	Meshes     int
	Primitives int
	Points     int
}

// Frame converts the current samples of s into a glTF document. Disabled
// nodes and their subtrees are skipped. Each split of a mesh becomes one
// glTF mesh with one primitive per submesh.
func Frame(s *scene.Scene) (*gltf.Document, Stats, error) {
	b := &builder{doc: gltf.NewDocument()}
	for _, c := range s.Root().Children() {
		idx, err := b.node(c)
		if err != nil {
			return nil, Stats{}, err
		}
		if idx >= 0 {
			b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, idx)
		}
	}
	if b.stats.Primitives == 0 && b.stats.Points == 0 {
		return nil, b.stats, ErrNothingResolved
	}
	logger.Named("export").Debug("frame built",
		zap.Int("nodes", b.stats.Nodes),
		zap.Int("meshes", b.stats.Meshes),
		zap.Int("primitives", b.stats.Primitives),
		zap.Int("points", b.stats.Points),
	)
	return b.doc, b.stats, nil
}

// Write encodes doc to w, as GLB when binary is set. JSON output embeds
// the buffers so the result is a single self-contained file.
func Write(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		embedBuffers(doc)
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	return enc.Encode(doc)
}

// Save writes doc to path, creating parent directories as needed.
func Save(doc *gltf.Document, path string, binary bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if binary {
		return gltf.SaveBinary(doc, path)
	}
	embedBuffers(doc)
	return gltf.Save(doc, path)
}

// embedBuffers turns every buffer without a URI into a data URI.
func embedBuffers(doc *gltf.Document) {
	for _, b := range doc.Buffers {
		if b.URI == "" && len(b.Data) > 0 {
			b.URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.Data)
		}
	}
}

type builder struct {
	doc   *gltf.Document
	stats Stats
}

// node adds n and its enabled subtree and returns the glTF node index, or
// -1 when n is disabled.
func (b *builder) node(n *scene.Node) (int, error) {
	if !n.Enabled() {
		return -1, nil
	}
	gn := &gltf.Node{
		Name:     n.Name(),
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
	idx := len(b.doc.Nodes)
	b.doc.Nodes = append(b.doc.Nodes, gn)
	b.stats.Nodes++

	switch sc := n.Schema().(type) {
	case *scene.Xform:
		setTransform(gn, sc.Blended())
	case *scene.PolyMesh:
		if err := b.polyMesh(idx, sc); err != nil {
			return -1, err
		}
	case *scene.Points:
		b.points(gn, sc)
	}

	for _, c := range n.Children() {
		ci, err := b.node(c)
		if err != nil {
			return -1, err
		}
		if ci >= 0 {
			b.doc.Nodes[idx].Children = append(b.doc.Nodes[idx].Children, ci)
		}
	}
	return idx, nil
}

func setTransform(gn *gltf.Node, d scene.XformData) {
	q := d.Rotation
	gn.Translation = [3]float64{float64(d.Translation[0]), float64(d.Translation[1]), float64(d.Translation[2])}
	gn.Rotation = [4]float64{float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)}
	gn.Scale = [3]float64{float64(d.Scale[0]), float64(d.Scale[1]), float64(d.Scale[2])}
}

// polyMesh attaches one glTF mesh per split. A single split goes on the
// node itself, several go on child nodes named after the split.
func (b *builder) polyMesh(nodeIdx int, pm *scene.PolyMesh) error {
	splits := pm.Splits()
	if len(splits) == 0 {
		return nil
	}
	name := b.doc.Nodes[nodeIdx].Name
	for i := range splits {
		mi, err := b.split(pm, i, fmt.Sprintf("%s_%d", name, i))
		if err != nil {
			return fmt.Errorf("exporting %s split %d: %w", pm.Path(), i, err)
		}
		if len(splits) == 1 {
			b.doc.Nodes[nodeIdx].Mesh = gltf.Index(mi)
			return nil
		}
		child := len(b.doc.Nodes)
		b.doc.Nodes = append(b.doc.Nodes, &gltf.Node{
			Name:     fmt.Sprintf("%s_split%d", name, i),
			Mesh:     gltf.Index(mi),
			Rotation: [4]float64{0, 0, 0, 1},
			Scale:    [3]float64{1, 1, 1},
		})
		b.doc.Nodes[nodeIdx].Children = append(b.doc.Nodes[nodeIdx].Children, child)
		b.stats.Nodes++
	}
	return nil
}

func (b *builder) split(pm *scene.PolyMesh, i int, name string) (int, error) {
	vb, err := pm.NewVertexBuffer(i)
	if err != nil {
		return -1, err
	}
	if err := pm.FillVertexBuffer(i, vb); err != nil {
		return -1, err
	}

	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(b.doc, vec3s(vb.Positions)),
	}
	if len(vb.Normals) > 0 {
		attrs[gltf.NORMAL] = modeler.WriteNormal(b.doc, vec3s(vb.Normals))
	}
	if len(vb.Tangents) > 0 {
		attrs[gltf.TANGENT] = modeler.WriteTangent(b.doc, vec4s(vb.Tangents))
	}
	if len(vb.UV0) > 0 {
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(b.doc, vec2s(vb.UV0))
	}
	if len(vb.UV1) > 0 {
		attrs[gltf.TEXCOORD_1] = modeler.WriteTextureCoord(b.doc, vec2s(vb.UV1))
	}
	if len(vb.Colors) > 0 {
		attrs[gltf.COLOR_0] = modeler.WriteColor(b.doc, vec4s(vb.Colors))
	}

	sp, err := pm.GetSplitSummary(i)
	if err != nil {
		return -1, err
	}
	m := &gltf.Mesh{Name: name}
	for sub := 0; sub < sp.SubmeshCount; sub++ {
		sm, err := pm.GetSubmeshSummary(i, sub)
		if err != nil {
			return -1, err
		}
		if sm.IndexCount == 0 {
			continue
		}
		idx := make([]uint32, sm.IndexCount)
		if err := pm.FillSubmeshIndices(i, sub, idx); err != nil {
			return -1, err
		}
		m.Primitives = append(m.Primitives, &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(b.doc, idx)),
			Attributes: attrs,
			Mode:       gltf.PrimitiveTriangles,
		})
		b.stats.Primitives++
	}
	b.doc.Meshes = append(b.doc.Meshes, m)
	b.stats.Meshes++
	return len(b.doc.Meshes) - 1, nil
}

// points exports a point cloud as a single POINTS primitive.
func (b *builder) points(gn *gltf.Node, p *scene.Points) {
	s := p.Sample()
	if s == nil || s.Count() == 0 {
		return
	}
	m := &gltf.Mesh{
		Name: gn.Name,
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: modeler.WritePosition(b.doc, vec3s(s.Positions))},
			Mode:       gltf.PrimitivePoints,
		}},
	}
	b.doc.Meshes = append(b.doc.Meshes, m)
	gn.Mesh = gltf.Index(len(b.doc.Meshes) - 1)
	b.stats.Meshes++
	b.stats.Points += s.Count()
}

func vec2s(in []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func vec3s(in []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func vec4s(in []mgl32.Vec4) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
