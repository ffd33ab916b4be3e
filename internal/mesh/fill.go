package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexBuffer receives the vertex data of one split. Channel slices that
// are non-nil must hold at least the split's vertex count; nil channels
// are skipped, as are channels the sample lacks.
type VertexBuffer struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
	Normals    []mgl32.Vec3
	Tangents   []mgl32.Vec4
	UV0        []mgl32.Vec2
	UV1        []mgl32.Vec2
	Colors     []mgl32.Vec4

	VertexCount int
	Center      mgl32.Vec3
	Size        mgl32.Vec3
}

// NewVertexBuffer allocates a buffer for split i with every channel the
// sample provides.
func NewVertexBuffer(s *Sample, l *Layout, i int) *VertexBuffer {
	n := l.Splits[i].VertexCount
	ch := s.Channels()
	vb := &VertexBuffer{Positions: make([]mgl32.Vec3, n)}
	if ch.Has(ChannelVelocities) {
		vb.Velocities = make([]mgl32.Vec3, n)
	}
	if ch.Has(ChannelNormals) {
		vb.Normals = make([]mgl32.Vec3, n)
	}
	if ch.Has(ChannelTangents) {
		vb.Tangents = make([]mgl32.Vec4, n)
	}
	if ch.Has(ChannelUV0) {
		vb.UV0 = make([]mgl32.Vec2, n)
	}
	if ch.Has(ChannelUV1) {
		vb.UV1 = make([]mgl32.Vec2, n)
	}
	if ch.Has(ChannelColors) {
		vb.Colors = make([]mgl32.Vec4, n)
	}
	return vb
}

// FillVertexBuffer copies the vertices of split i into dst in split-local
// order.
func (l *Layout) FillVertexBuffer(s *Sample, i int, dst *VertexBuffer) error {
	if i < 0 || i >= len(l.Splits) {
		return fmt.Errorf("split %d of %d: %w", i, len(l.Splits), ErrNoSuchSplit)
	}
	sp := &l.Splits[i]

	channels := []struct {
		name string
		dst  int
	}{
		{"positions", len(dst.Positions)},
		{"velocities", len(dst.Velocities)},
		{"normals", len(dst.Normals)},
		{"tangents", len(dst.Tangents)},
		{"uv0", len(dst.UV0)},
		{"uv1", len(dst.UV1)},
		{"colors", len(dst.Colors)},
	}
	for _, ch := range channels {
		if ch.dst != 0 && ch.dst < sp.VertexCount {
			return fmt.Errorf("%s buffer holds %d, split %d needs %d", ch.name, ch.dst, i, sp.VertexCount)
		}
	}

	fillChannel(l, sp, s.Positions, dst.Positions)
	fillChannel(l, sp, s.Velocities, dst.Velocities)
	fillChannel(l, sp, s.Normals, dst.Normals)
	fillChannel(l, sp, s.Tangents, dst.Tangents)
	fillChannel(l, sp, s.UV0, dst.UV0)
	fillChannel(l, sp, s.UV1, dst.UV1)
	fillChannel(l, sp, s.Colors, dst.Colors)

	dst.VertexCount = sp.VertexCount
	dst.Center = sp.Bounds.Center()
	dst.Size = sp.Bounds.Size()
	return nil
}

// FillSubmeshIndices copies the split-local indices of one submesh into
// dst, which must hold the submesh's index count.
func (l *Layout) FillSubmeshIndices(i, sub int, dst []uint32) error {
	idx, err := l.SubmeshIndices(i, sub)
	if err != nil {
		return err
	}
	if len(dst) < len(idx) {
		return fmt.Errorf("index buffer holds %d, submesh needs %d", len(dst), len(idx))
	}
	copy(dst, idx)
	return nil
}

func fillChannel[T any](l *Layout, sp *Split, src, dst []T) {
	if len(src) == 0 || len(dst) == 0 {
		return
	}
	if l.remap == nil {
		copy(dst, src[sp.VertexOffset:sp.VertexOffset+sp.VertexCount])
		return
	}
	for k, v := range l.remap[sp.VertexOffset : sp.VertexOffset+sp.VertexCount] {
		dst[k] = src[v]
	}
}
