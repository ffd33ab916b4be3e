package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/pkg/cache"
)

// Build converts a stored sample into a triangulated Sample.
// The stored arrays are never modified; everything returned is a copy.
func Build(raw *cache.MeshSample, opts BuildOptions) (*Sample, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil sample", ErrMalformedSample)
	}

	s := &Sample{
		Positions:  cloneVec3(raw.Positions),
		Velocities: cloneVec3(raw.Velocities),
		Normals:    cloneVec3(raw.Normals),
		Tangents:   cloneVec4(raw.Tangents),
		UV0:        cloneVec2(raw.UV0),
		UV1:        cloneVec2(raw.UV1),
		Colors:     cloneVec4(raw.Colors),
	}

	n := len(s.Positions)
	s.Submeshes = make([]TriangleSet, 0, len(raw.FaceSets))
	for fi := range raw.FaceSets {
		tris, err := Triangulate(&raw.FaceSets[fi], n, opts.TurnQuadEdges)
		if err != nil {
			return nil, fmt.Errorf("face set %d: %w", fi, err)
		}
		s.Submeshes = append(s.Submeshes, TriangleSet{Name: raw.FaceSets[fi].Name, Indices: tris})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	switch opts.Normals {
	case NormalsIgnore:
		s.Normals = nil
	case NormalsAlwaysCompute:
		s.Normals = ComputeNormals(s)
	case NormalsComputeIfMissing:
		if len(s.Normals) == 0 {
			s.Normals = ComputeNormals(s)
		}
	}

	if opts.Tangents == TangentsCompute && len(s.Normals) > 0 && len(s.UV0) > 0 {
		s.Tangents = ComputeTangents(s)
	}

	if opts.VertexMotionScale != 1 {
		for i := range s.Velocities {
			s.Velocities[i] = s.Velocities[i].Mul(opts.VertexMotionScale)
		}
	}

	if opts.SwapHandedness {
		swapHandedness(s)
	}
	if opts.SwapFaceWinding {
		swapWinding(s)
	}
	return s, nil
}

// Triangulate fans each polygon of a face set into triangles. Polygons with
// fewer than three corners are skipped. Every corner must address a vertex
// below vertexCount.
func Triangulate(fs *cache.FaceSet, vertexCount int, turnQuadEdges bool) ([]uint32, error) {
	total := 0
	tris := 0
	for _, c := range fs.FaceCounts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative face count %d", ErrMalformedSample, c)
		}
		total += int(c)
		if c >= 3 {
			tris += int(c) - 2
		}
	}
	if total != len(fs.Indices) {
		return nil, fmt.Errorf("%w: face counts sum to %d, %d indices stored",
			ErrMalformedSample, total, len(fs.Indices))
	}
	for _, v := range fs.Indices {
		if v < 0 || int(v) >= vertexCount {
			return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrMalformedSample, v, vertexCount)
		}
	}

	out := make([]uint32, 0, tris*3)
	base := 0
	for _, c := range fs.FaceCounts {
		corners := fs.Indices[base : base+int(c)]
		base += int(c)

		switch {
		case c < 3:
			continue
		case c == 4 && turnQuadEdges:
			out = append(out,
				uint32(corners[1]), uint32(corners[2]), uint32(corners[3]),
				uint32(corners[1]), uint32(corners[3]), uint32(corners[0]))
		default:
			for i := 1; i+1 < len(corners); i++ {
				out = append(out, uint32(corners[0]), uint32(corners[i]), uint32(corners[i+1]))
			}
		}
	}
	return out, nil
}

// swapHandedness mirrors the X axis of every spatial channel. Mirroring
// flips the bitangent, so tangent W is negated too.
func swapHandedness(s *Sample) {
	for i := range s.Positions {
		s.Positions[i][0] = -s.Positions[i][0]
	}
	for i := range s.Velocities {
		s.Velocities[i][0] = -s.Velocities[i][0]
	}
	for i := range s.Normals {
		s.Normals[i][0] = -s.Normals[i][0]
	}
	for i := range s.Tangents {
		s.Tangents[i][0] = -s.Tangents[i][0]
		s.Tangents[i][3] = -s.Tangents[i][3]
	}
}

func swapWinding(s *Sample) {
	for si := range s.Submeshes {
		idx := s.Submeshes[si].Indices
		for t := 0; t+2 < len(idx); t += 3 {
			idx[t+1], idx[t+2] = idx[t+2], idx[t+1]
		}
	}
}

func cloneVec2(in []mgl32.Vec2) []mgl32.Vec2 {
	if len(in) == 0 {
		return nil
	}
	return append([]mgl32.Vec2(nil), in...)
}

func cloneVec3(in []mgl32.Vec3) []mgl32.Vec3 {
	if len(in) == 0 {
		return nil
	}
	return append([]mgl32.Vec3(nil), in...)
}

func cloneVec4(in []mgl32.Vec4) []mgl32.Vec4 {
	if len(in) == 0 {
		return nil
	}
	return append([]mgl32.Vec4(nil), in...)
}
