package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/abcstream/internal/mesh"
	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// MeshSampleSummary describes the currently resolved mesh sample.
type MeshSampleSummary struct {
	SplitCount int
	// SubmeshCount is the number of draw calls over all splits. A face set
	// cut across splits counts once per piece.
	SubmeshCount int
	VertexCount  int
	IndexCount   int
	// TopologyChanged is true when the vertex or index count differs from
	// the previously resolved sample.
	TopologyChanged bool
}

// PolyMesh is a polygon mesh schema.
type PolyMesh struct {
	base
	src cache.MeshSource

	summary       mesh.Summary
	sample        *mesh.Sample
	layout        *mesh.Layout
	sampleSummary MeshSampleSummary
}

// Summary implements Schema.
func (m *PolyMesh) Summary() Summary {
	sum := m.summary
	return Summary{Kind: m.kind, TimeSampling: m.TimeSampling(), Constant: m.constant, Mesh: &sum}
}

// MeshSummary returns the static mesh description gathered at load.
func (m *PolyMesh) MeshSummary() mesh.Summary {
	return m.summary
}

// SampleSummary describes the resolved sample. It is zero before the first
// successful resolution.
func (m *PolyMesh) SampleSummary() MeshSampleSummary {
	return m.sampleSummary
}

// Sample returns the resolved sample, or nil before the first resolution.
// The returned value must not be modified and is valid until the next
// UpdateSample.
func (m *PolyMesh) Sample() *mesh.Sample {
	return m.sample
}

// Splits returns the splits of the resolved sample in order.
func (m *PolyMesh) Splits() []mesh.Split {
	if m.layout == nil {
		return nil
	}
	return m.layout.Splits
}

// GetSplitSummary returns split i of the resolved sample.
func (m *PolyMesh) GetSplitSummary(i int) (mesh.Split, error) {
	if m.layout == nil {
		return mesh.Split{}, fmt.Errorf("%s: %w", m.path, ErrNotResolved)
	}
	if i < 0 || i >= len(m.layout.Splits) {
		return mesh.Split{}, fmt.Errorf("%s: split %d of %d: %w", m.path, i, len(m.layout.Splits), ErrNoSuchSplit)
	}
	return m.layout.Splits[i], nil
}

// GetSubmeshSummary returns submesh sub of split i.
func (m *PolyMesh) GetSubmeshSummary(i, sub int) (mesh.Submesh, error) {
	if m.layout == nil {
		return mesh.Submesh{}, fmt.Errorf("%s: %w", m.path, ErrNotResolved)
	}
	s, err := m.layout.Submesh(i, sub)
	if err != nil {
		return mesh.Submesh{}, fmt.Errorf("%s: %w", m.path, err)
	}
	return s, nil
}

// NewVertexBuffer allocates a buffer sized for split i.
func (m *PolyMesh) NewVertexBuffer(i int) (*mesh.VertexBuffer, error) {
	if _, err := m.GetSplitSummary(i); err != nil {
		return nil, err
	}
	return mesh.NewVertexBuffer(m.sample, m.layout, i), nil
}

// FillVertexBuffer copies the vertices of split i into dst.
func (m *PolyMesh) FillVertexBuffer(i int, dst *mesh.VertexBuffer) error {
	if m.layout == nil {
		return fmt.Errorf("%s: %w", m.path, ErrNotResolved)
	}
	if err := m.layout.FillVertexBuffer(m.sample, i, dst); err != nil {
		return fmt.Errorf("%s: %w", m.path, err)
	}
	return nil
}

// FillSubmeshIndices copies the split-local indices of one submesh into dst.
func (m *PolyMesh) FillSubmeshIndices(i, sub int, dst []uint32) error {
	if m.layout == nil {
		return fmt.Errorf("%s: %w", m.path, ErrNotResolved)
	}
	if err := m.layout.FillSubmeshIndices(i, sub, dst); err != nil {
		return fmt.Errorf("%s: %w", m.path, err)
	}
	return nil
}

// UpdateSample implements Schema.
func (m *PolyMesh) UpdateSample(sel sampling.Selector) error {
	res, rebuild, err := m.resolve(sel)
	if err != nil {
		return err
	}
	if !rebuild {
		m.commit(res, false)
		return nil
	}

	raw, err := m.src.MeshSample(res.Index)
	if err != nil {
		return m.fail(res.Index, err)
	}
	s, err := mesh.Build(raw, m.cfg.buildOptions())
	if err != nil {
		return m.fail(res.Index, err)
	}
	layout, err := mesh.SplitSample(s, m.cfg.SplitUnit)
	if err != nil {
		return m.fail(res.Index, err)
	}

	changed := mesh.TopologyChanged(m.sample, s)
	m.sample = s
	m.layout = layout
	m.sampleSummary = MeshSampleSummary{
		SplitCount:      len(layout.Splits),
		SubmeshCount:    len(layout.Submeshes),
		VertexCount:     layout.VertexCount(),
		IndexCount:      layout.IndexCount(),
		TopologyChanged: changed,
	}
	m.metrics.MeshSplit(len(layout.Splits), changed)
	m.log.Debug("mesh sample rebuilt",
		zap.Int("index", res.Index),
		zap.Int("splits", len(layout.Splits)),
		zap.Int("vertices", layout.VertexCount()),
		zap.Bool("topologyChanged", changed),
	)
	m.commit(res, true)
	return nil
}

func (m *PolyMesh) scan() error {
	t, err := mesh.Scan(m.TimeSampling().Count, m.src.MeshSample)
	if err != nil {
		return err
	}
	m.summary = t.Summary()
	m.constant = t.IsConstant()
	return nil
}
