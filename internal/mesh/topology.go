package mesh

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaolacci/murmur3"

	"github.com/Faultbox/abcstream/pkg/cache"
)

// TopologyVariance classifies how a mesh's structure changes over time.
// Values are ordered: a classification only ever moves to a larger value.
type TopologyVariance int

const (
	// Constant: identical index buffer and vertex count in every sample.
	// Positions may still move.
	Constant TopologyVariance = iota
	// Homogeneous: counts and index buffer are constant but the set of
	// attribute channels present varies between samples.
	Homogeneous
	// Heterogeneous: vertex count, index count or index buffer changes.
	Heterogeneous
)

// String returns the classification name.
func (v TopologyVariance) String() string {
	switch v {
	case Constant:
		return "Constant"
	case Homogeneous:
		return "Homogeneous"
	case Heterogeneous:
		return "Heterogeneous"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

// Downgrade returns the weaker of v and to. Upgrades are ignored.
func (v TopologyVariance) Downgrade(to TopologyVariance) TopologyVariance {
	if to > v {
		return to
	}
	return v
}

// Fingerprint condenses one stored sample for comparison against others.
type Fingerprint struct {
	VertexCount int
	IndexCount  int
	IndexHash   uint64
	Channels    Channel
	// Per-channel content hashes, indexed by the slot constants.
	Content [channelSlots]uint64
}

const (
	slotPositions = iota
	slotVelocities
	slotNormals
	slotTangents
	slotUV0
	slotUV1
	slotColors
	channelSlots
)

// FingerprintOf hashes the face structure and attribute contents of a
// stored sample.
func FingerprintOf(raw *cache.MeshSample) Fingerprint {
	fp := Fingerprint{VertexCount: len(raw.Positions)}

	h := murmur3.New64()
	var buf []byte
	for _, fs := range raw.FaceSets {
		buf = binary.LittleEndian.AppendUint32(buf[:0], uint32(len(fs.FaceCounts)))
		for _, c := range fs.FaceCounts {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
		}
		for _, i := range fs.Indices {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
		}
		h.Write(buf)
		fp.IndexCount += len(fs.Indices)
	}
	fp.IndexHash = h.Sum64()

	fp.Content[slotPositions] = hashVec3(raw.Positions)
	fp.Content[slotVelocities] = hashVec3(raw.Velocities)
	fp.Content[slotNormals] = hashVec3(raw.Normals)
	fp.Content[slotTangents] = hashVec4(raw.Tangents)
	fp.Content[slotUV0] = hashVec2(raw.UV0)
	fp.Content[slotUV1] = hashVec2(raw.UV1)
	fp.Content[slotColors] = hashVec4(raw.Colors)

	if len(raw.Velocities) > 0 {
		fp.Channels |= ChannelVelocities
	}
	if len(raw.Normals) > 0 {
		fp.Channels |= ChannelNormals
	}
	if len(raw.Tangents) > 0 {
		fp.Channels |= ChannelTangents
	}
	if len(raw.UV0) > 0 {
		fp.Channels |= ChannelUV0
	}
	if len(raw.UV1) > 0 {
		fp.Channels |= ChannelUV1
	}
	if len(raw.Colors) > 0 {
		fp.Channels |= ChannelColors
	}
	return fp
}

// Tracker folds consecutive sample fingerprints into a classification and
// per-channel constancy flags.
type Tracker struct {
	variance TopologyVariance
	first    Fingerprint
	prev     Fingerprint
	samples  int

	present  Channel // present in at least one sample
	everyone Channel // present in every sample
	varying  [channelSlots]bool
}

// NewTracker returns a tracker in the Constant state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Variance returns the current classification.
func (t *Tracker) Variance() TopologyVariance {
	return t.variance
}

// Samples returns how many fingerprints were observed.
func (t *Tracker) Samples() int {
	return t.samples
}

// Observe folds the next sample in stored order.
func (t *Tracker) Observe(fp Fingerprint) {
	t.samples++
	if t.samples == 1 {
		t.first = fp
		t.prev = fp
		t.present = fp.Channels
		t.everyone = fp.Channels
		return
	}

	switch {
	case fp.VertexCount != t.prev.VertexCount || fp.IndexCount != t.prev.IndexCount:
		t.variance = t.variance.Downgrade(Heterogeneous)
	case fp.IndexHash != t.prev.IndexHash:
		t.variance = t.variance.Downgrade(Heterogeneous)
	case fp.Channels != t.prev.Channels:
		t.variance = t.variance.Downgrade(Homogeneous)
	}

	t.present |= fp.Channels
	t.everyone &= fp.Channels
	for i := range fp.Content {
		if fp.Content[i] != t.first.Content[i] {
			t.varying[i] = true
		}
	}
	t.prev = fp
}

// Summary is the static, load-time description of a mesh schema.
type Summary struct {
	TopologyVariance TopologyVariance

	HasVelocities bool
	HasNormals    bool
	HasTangents   bool
	HasUV0        bool
	HasUV1        bool
	HasColors     bool

	ConstantPoints     bool
	ConstantVelocities bool
	ConstantNormals    bool
	ConstantTangents   bool
	ConstantUV0        bool
	ConstantUV1        bool
	ConstantColors     bool
}

// IsConstant reports whether every sample is identical.
func (t *Tracker) IsConstant() bool {
	if t.variance != Constant {
		return false
	}
	for _, v := range t.varying {
		if v {
			return false
		}
	}
	return true
}

// Summary builds the static summary from everything observed. A channel
// counts as constant only if it is present in every sample with identical
// contents.
func (t *Tracker) Summary() Summary {
	constant := func(ch Channel, slot int) bool {
		return t.everyone.Has(ch) && !t.varying[slot]
	}
	return Summary{
		TopologyVariance:   t.variance,
		HasVelocities:      t.present.Has(ChannelVelocities),
		HasNormals:         t.present.Has(ChannelNormals),
		HasTangents:        t.present.Has(ChannelTangents),
		HasUV0:             t.present.Has(ChannelUV0),
		HasUV1:             t.present.Has(ChannelUV1),
		HasColors:          t.present.Has(ChannelColors),
		ConstantPoints:     t.samples > 0 && !t.varying[slotPositions],
		ConstantVelocities: constant(ChannelVelocities, slotVelocities),
		ConstantNormals:    constant(ChannelNormals, slotNormals),
		ConstantTangents:   constant(ChannelTangents, slotTangents),
		ConstantUV0:        constant(ChannelUV0, slotUV0),
		ConstantUV1:        constant(ChannelUV1, slotUV1),
		ConstantColors:     constant(ChannelColors, slotColors),
	}
}

// Scan fingerprints every stored sample in order. fetch returns stored
// sample i. Any fetch failure aborts the scan.
func Scan(count int, fetch func(i int) (*cache.MeshSample, error)) (*Tracker, error) {
	t := NewTracker()
	for i := 0; i < count; i++ {
		raw, err := fetch(i)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if raw == nil {
			return nil, fmt.Errorf("sample %d: %w: missing", i, ErrMalformedSample)
		}
		t.Observe(FingerprintOf(raw))
	}
	return t, nil
}

// TopologyChanged reports whether two consecutive resolved samples differ
// in vertex or index count. A nil prev means nothing was resolved before.
func TopologyChanged(prev, cur *Sample) bool {
	if prev == nil || cur == nil {
		return false
	}
	return prev.VertexCount() != cur.VertexCount() || prev.IndexCount() != cur.IndexCount()
}

func hashFloats(n int, at func(i int) float32) uint64 {
	if n == 0 {
		return 0
	}
	h := murmur3.New64()
	buf := make([]byte, 0, 4*1024)
	for i := 0; i < n; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, gomath.Float32bits(at(i)))
		if len(buf) >= cap(buf)-4 {
			h.Write(buf)
			buf = buf[:0]
		}
	}
	h.Write(buf)
	return h.Sum64()
}

func hashVec2(v []mgl32.Vec2) uint64 {
	return hashFloats(len(v)*2, func(i int) float32 { return v[i/2][i%2] })
}

func hashVec3(v []mgl32.Vec3) uint64 {
	return hashFloats(len(v)*3, func(i int) float32 { return v[i/3][i%3] })
}

func hashVec4(v []mgl32.Vec4) uint64 {
	return hashFloats(len(v)*4, func(i int) float32 { return v[i/4][i%4] })
}
