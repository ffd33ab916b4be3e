package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/internal/points"
	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// Points is a point cloud schema.
type Points struct {
	base
	src cache.PointsSource

	summary points.Summary
	sorter  points.Sorter
	sample  *points.Sample
}

// Summary implements Schema.
func (p *Points) Summary() Summary {
	sum := p.summary
	return Summary{Kind: p.kind, TimeSampling: p.TimeSampling(), Constant: p.constant, Points: &sum}
}

// PointsSummary returns the static description gathered at load.
func (p *Points) PointsSummary() points.Summary {
	return p.summary
}

// Sample returns the resolved point cloud, or nil before the first
// resolution. It is valid until the next UpdateSample.
func (p *Points) Sample() *points.Sample {
	return p.sample
}

// SetSort enables or disables distance sorting. The next UpdateSample
// rebuilds the sample.
func (p *Points) SetSort(enabled bool) {
	if p.sorter.Enabled != enabled {
		p.sorter.Enabled = enabled
		p.MarkForceUpdate()
	}
}

// SetSortBasePosition sets the reference position for sorting.
func (p *Points) SetSortBasePosition(pos mgl32.Vec3) {
	if p.sorter.Base != pos {
		p.sorter.Base = pos
		if p.sorter.Enabled {
			p.MarkForceUpdate()
		}
	}
}

// UpdateSample implements Schema. While sorting is enabled the sample is
// re-sorted on every resolution since the base position may move between
// frames.
func (p *Points) UpdateSample(sel sampling.Selector) error {
	res, rebuild, err := p.resolve(sel)
	if err != nil {
		return err
	}
	rebuild = rebuild || p.sorter.Enabled
	if !rebuild {
		p.commit(res, false)
		return nil
	}

	raw, err := p.src.PointsSample(res.Index)
	if err != nil {
		return p.fail(res.Index, err)
	}
	s, err := points.FromCache(raw)
	if err != nil {
		return p.fail(res.Index, err)
	}
	s.ScaleVelocities(p.cfg.VertexMotionScale)
	if p.cfg.SwapHandedness {
		s.SwapHandedness()
	}
	p.sorter.Apply(s)

	p.sample = s
	p.commit(res, true)
	return nil
}

func (p *Points) scan() error {
	sum, err := points.Summarize(p.TimeSampling().Count, p.src.PointsSample)
	if err != nil {
		return err
	}
	if p.cfg.SwapHandedness {
		sum.BoundsCenter[0] = -sum.BoundsCenter[0]
	}
	p.summary = sum
	p.constant = sum.PositionsConstant && (sum.IDsConstant || !sum.HasIDs)
	return nil
}
