package mesh

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// degenerateEpsilon is the cross product magnitude below which a triangle
// contributes nothing.
const degenerateEpsilon = 1e-12

// ComputeNormals returns smooth per-vertex normals. Each triangle adds its
// unnormalized face normal to its corners, so larger faces weigh more.
// Vertices touched only by degenerate triangles get +Y.
func ComputeNormals(s *Sample) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(s.Positions))

	for si := range s.Submeshes {
		idx := s.Submeshes[si].Indices
		for t := 0; t+2 < len(idx); t += 3 {
			i0, i1, i2 := idx[t], idx[t+1], idx[t+2]
			v0 := s.Positions[i0]
			e1 := s.Positions[i1].Sub(v0)
			e2 := s.Positions[i2].Sub(v0)
			n := e1.Cross(e2)
			if n.LenSqr() < degenerateEpsilon {
				continue
			}
			normals[i0] = normals[i0].Add(n)
			normals[i1] = normals[i1].Add(n)
			normals[i2] = normals[i2].Add(n)
		}
	}

	for i := range normals {
		normals[i] = safeNormalize(normals[i], mgl32.Vec3{0, 1, 0})
	}
	return normals
}

// ComputeTangents derives per-vertex tangents from positions, normals and
// UV0. W holds the bitangent sign. Requires Normals and UV0.
func ComputeTangents(s *Sample) []mgl32.Vec4 {
	n := len(s.Positions)
	tan := make([]mgl32.Vec3, n)
	bitan := make([]mgl32.Vec3, n)

	for si := range s.Submeshes {
		idx := s.Submeshes[si].Indices
		for t := 0; t+2 < len(idx); t += 3 {
			i0, i1, i2 := idx[t], idx[t+1], idx[t+2]

			e1 := s.Positions[i1].Sub(s.Positions[i0])
			e2 := s.Positions[i2].Sub(s.Positions[i0])
			d1 := s.UV0[i1].Sub(s.UV0[i0])
			d2 := s.UV0[i2].Sub(s.UV0[i0])

			det := d1[0]*d2[1] - d2[0]*d1[1]
			if gomath.Abs(float64(det)) < 1e-12 {
				continue
			}
			r := 1 / det
			sdir := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
			tdir := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)

			for _, v := range [3]uint32{i0, i1, i2} {
				tan[v] = tan[v].Add(sdir)
				bitan[v] = bitan[v].Add(tdir)
			}
		}
	}

	out := make([]mgl32.Vec4, n)
	for i := range out {
		nrm := s.Normals[i]
		// Gram-Schmidt against the normal.
		t := tan[i].Sub(nrm.Mul(nrm.Dot(tan[i])))
		t = safeNormalize(t, fallbackTangent(nrm))
		w := float32(1)
		if nrm.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		out[i] = t.Vec4(w)
	}
	return out
}

// fallbackTangent returns any unit vector perpendicular to n.
func fallbackTangent(n mgl32.Vec3) mgl32.Vec3 {
	axis := mgl32.Vec3{1, 0, 0}
	if gomath.Abs(float64(n[0])) > 0.9 {
		axis = mgl32.Vec3{0, 0, 1}
	}
	return safeNormalize(axis.Sub(n.Mul(n.Dot(axis))), mgl32.Vec3{1, 0, 0})
}

func safeNormalize(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-20 || gomath.IsNaN(float64(l)) {
		return fallback
	}
	return v.Mul(1 / l)
}
