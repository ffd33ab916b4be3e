// Package mesh turns stored polygon mesh samples into renderer-ready
// triangle buffers: triangulation, normal and tangent generation, topology
// classification and splitting into index-width bounded chunks.
package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh errors.
var (
	ErrInvalidLimit    = errors.New("invalid split vertex limit")
	ErrMalformedSample = errors.New("malformed sample")
	ErrNoSuchSplit     = errors.New("no such split or submesh")
)

// MinSplitUnit is the smallest split limit that can hold one triangle.
const MinSplitUnit = 3

// DefaultSplitUnit keeps split-local indices under a 16-bit ceiling.
const DefaultSplitUnit = 65000

// Channel is a bit set of optional per-vertex attribute channels.
type Channel uint8

const (
	ChannelVelocities Channel = 1 << iota
	ChannelNormals
	ChannelTangents
	ChannelUV0
	ChannelUV1
	ChannelColors
)

// Has reports whether all channels in c2 are set.
func (c Channel) Has(c2 Channel) bool {
	return c&c2 == c2
}

// String lists the set channels, e.g. "normals|uv0".
func (c Channel) String() string {
	names := []struct {
		ch   Channel
		name string
	}{
		{ChannelVelocities, "velocities"},
		{ChannelNormals, "normals"},
		{ChannelTangents, "tangents"},
		{ChannelUV0, "uv0"},
		{ChannelUV1, "uv1"},
		{ChannelColors, "colors"},
	}
	s := ""
	for _, n := range names {
		if c.Has(n.ch) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// TriangleSet is the triangulated index list of one face set.
type TriangleSet struct {
	Name    string
	Indices []uint32
}

// Sample is a triangulated mesh sample with per-vertex attributes.
// Optional channels are nil or exactly len(Positions) long.
type Sample struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
	Normals    []mgl32.Vec3
	Tangents   []mgl32.Vec4
	UV0        []mgl32.Vec2
	UV1        []mgl32.Vec2
	Colors     []mgl32.Vec4
	Submeshes  []TriangleSet
}

// VertexCount returns the number of vertices.
func (s *Sample) VertexCount() int {
	return len(s.Positions)
}

// IndexCount returns the total triangle index count over all submeshes.
func (s *Sample) IndexCount() int {
	n := 0
	for i := range s.Submeshes {
		n += len(s.Submeshes[i].Indices)
	}
	return n
}

// Channels returns the set of optional channels that are present.
func (s *Sample) Channels() Channel {
	var c Channel
	if len(s.Velocities) > 0 {
		c |= ChannelVelocities
	}
	if len(s.Normals) > 0 {
		c |= ChannelNormals
	}
	if len(s.Tangents) > 0 {
		c |= ChannelTangents
	}
	if len(s.UV0) > 0 {
		c |= ChannelUV0
	}
	if len(s.UV1) > 0 {
		c |= ChannelUV1
	}
	if len(s.Colors) > 0 {
		c |= ChannelColors
	}
	return c
}

// Validate checks attribute lengths and index ranges.
func (s *Sample) Validate() error {
	n := len(s.Positions)
	channels := []struct {
		name string
		len  int
	}{
		{"velocities", len(s.Velocities)},
		{"normals", len(s.Normals)},
		{"tangents", len(s.Tangents)},
		{"uv0", len(s.UV0)},
		{"uv1", len(s.UV1)},
		{"colors", len(s.Colors)},
	}
	for _, ch := range channels {
		if ch.len != 0 && ch.len != n {
			return fmt.Errorf("%w: %s has %d entries, %d vertices", ErrMalformedSample, ch.name, ch.len, n)
		}
	}

	for si := range s.Submeshes {
		idx := s.Submeshes[si].Indices
		if len(idx)%3 != 0 {
			return fmt.Errorf("%w: submesh %d has %d indices, not a triangle list", ErrMalformedSample, si, len(idx))
		}
		for _, v := range idx {
			if int(v) >= n {
				return fmt.Errorf("%w: submesh %d references vertex %d of %d", ErrMalformedSample, si, v, n)
			}
		}
	}
	return nil
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBounds returns an inverted box that any point will expand.
func EmptyBounds() Bounds {
	return Bounds{
		Min: mgl32.Vec3{1e30, 1e30, 1e30},
		Max: mgl32.Vec3{-1e30, -1e30, -1e30},
	}
}

// IsEmpty reports whether no point has been added.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0]
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union grows the box to contain o.
func (b *Bounds) Union(o Bounds) {
	if o.IsEmpty() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// Center returns the box center, zero for an empty box.
func (b Bounds) Center() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box dimensions, zero for an empty box.
func (b Bounds) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Extents returns half the box dimensions.
func (b Bounds) Extents() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// BoundsOf returns the bounds of a point set.
func BoundsOf(points []mgl32.Vec3) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		b.Extend(p)
	}
	return b
}
