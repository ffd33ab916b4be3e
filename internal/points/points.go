// Package points resolves point cloud samples and optionally reorders them
// by distance to a reference position.
package points

import (
	"fmt"
	"slices"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/internal/mesh"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// ErrMalformedSample reports a points sample whose channels disagree in
// length. It is the same sentinel the mesh package uses.
var ErrMalformedSample = mesh.ErrMalformedSample

// Sample is one resolved point cloud. Velocities and IDs are either empty or
// as long as Positions.
type Sample struct {
	Positions  []mgl32.Vec3
	Velocities []mgl32.Vec3
	IDs        []uint64
}

// Count returns the number of points.
func (s *Sample) Count() int {
	return len(s.Positions)
}

// Validate checks channel lengths.
func (s *Sample) Validate() error {
	n := len(s.Positions)
	if len(s.Velocities) != 0 && len(s.Velocities) != n {
		return fmt.Errorf("%w: %d velocities for %d points", ErrMalformedSample, len(s.Velocities), n)
	}
	if len(s.IDs) != 0 && len(s.IDs) != n {
		return fmt.Errorf("%w: %d ids for %d points", ErrMalformedSample, len(s.IDs), n)
	}
	return nil
}

// FromCache copies a stored sample so later processing never touches the
// reader's data.
func FromCache(raw *cache.PointsSample) (*Sample, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: missing", ErrMalformedSample)
	}
	s := &Sample{
		Positions:  append([]mgl32.Vec3(nil), raw.Positions...),
		Velocities: append([]mgl32.Vec3(nil), raw.Velocities...),
		IDs:        append([]uint64(nil), raw.IDs...),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SwapHandedness mirrors positions and velocities across the YZ plane.
func (s *Sample) SwapHandedness() {
	for i := range s.Positions {
		s.Positions[i][0] = -s.Positions[i][0]
	}
	for i := range s.Velocities {
		s.Velocities[i][0] = -s.Velocities[i][0]
	}
}

// ScaleVelocities multiplies every velocity by k.
func (s *Sample) ScaleVelocities(k float32) {
	if k == 1 {
		return
	}
	for i := range s.Velocities {
		s.Velocities[i] = s.Velocities[i].Mul(k)
	}
}

// Summary is the static description of a points schema, gathered over all
// stored samples.
type Summary struct {
	PeakCount         int
	MinID             uint64
	MaxID             uint64
	HasVelocities     bool
	HasIDs            bool
	PositionsConstant bool
	IDsConstant       bool
	BoundsCenter      mgl32.Vec3
	BoundsExtents     mgl32.Vec3
}

// Summarize scans every stored sample in order.
func Summarize(count int, fetch func(i int) (*cache.PointsSample, error)) (Summary, error) {
	var (
		sum      = Summary{PositionsConstant: true, IDsConstant: true}
		bounds   = mesh.EmptyBounds()
		first    *cache.PointsSample
		minMaxOK bool
	)
	for i := 0; i < count; i++ {
		raw, err := fetch(i)
		if err != nil {
			return Summary{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if raw == nil {
			return Summary{}, fmt.Errorf("sample %d: %w: missing", i, ErrMalformedSample)
		}

		sum.PeakCount = max(sum.PeakCount, len(raw.Positions))
		if len(raw.Velocities) > 0 {
			sum.HasVelocities = true
		}
		for _, p := range raw.Positions {
			bounds.Extend(p)
		}
		for _, id := range raw.IDs {
			if !minMaxOK {
				sum.MinID, sum.MaxID, minMaxOK = id, id, true
				continue
			}
			sum.MinID = min(sum.MinID, id)
			sum.MaxID = max(sum.MaxID, id)
		}

		if first == nil {
			first = raw
			continue
		}
		if sum.PositionsConstant && !slices.Equal(first.Positions, raw.Positions) {
			sum.PositionsConstant = false
		}
		if sum.IDsConstant && !slices.Equal(first.IDs, raw.IDs) {
			sum.IDsConstant = false
		}
	}

	if count == 0 {
		sum.PositionsConstant = false
		sum.IDsConstant = false
		return sum, nil
	}
	sum.HasIDs = minMaxOK
	if !sum.HasIDs {
		sum.IDsConstant = false
	}
	if !bounds.IsEmpty() {
		sum.BoundsCenter = bounds.Center()
		sum.BoundsExtents = bounds.Extents()
	}
	return sum, nil
}

// Sorter reorders a sample by ascending squared distance to a reference
// position. The zero value is disabled.
type Sorter struct {
	Enabled bool
	Base    mgl32.Vec3

	perm []int
}

// Order returns the permutation that sorts positions by distance to Base.
// Equal distances keep their original relative order.
func (o *Sorter) Order(positions []mgl32.Vec3) []int {
	perm := o.perm[:0]
	for i := range positions {
		perm = append(perm, i)
	}
	dist := make([]float32, len(positions))
	for i, p := range positions {
		dist[i] = p.Sub(o.Base).LenSqr()
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return dist[perm[a]] < dist[perm[b]]
	})
	o.perm = perm
	return perm
}

// Apply sorts s in place when the sorter is enabled.
func (o *Sorter) Apply(s *Sample) {
	if !o.Enabled || s.Count() < 2 {
		return
	}
	perm := o.Order(s.Positions)
	s.Positions = permute(s.Positions, perm)
	s.Velocities = permute(s.Velocities, perm)
	s.IDs = permute(s.IDs, perm)
}

func permute[T any](src []T, perm []int) []T {
	if len(src) == 0 {
		return src
	}
	out := make([]T, len(perm))
	for i, p := range perm {
		out[i] = src[p]
	}
	return out
}
