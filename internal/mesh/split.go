package mesh

import "fmt"

// Split is a chunk of a sample whose indices address at most the split
// limit of vertices. Offsets address the layout's logical vertex, index
// and submesh arrays.
type Split struct {
	SubmeshCount  int
	SubmeshOffset int
	VertexCount   int
	VertexOffset  int
	IndexCount    int
	IndexOffset   int
	Bounds        Bounds
}

// Submesh is one draw call: a run of split-local triangle indices taken
// from a single source face set.
type Submesh struct {
	SplitIndex   int
	SubmeshIndex int // position within the split
	Source       int // face set of the sample
	IndexCount   int
	IndexOffset  int // into the layout's logical index array
}

// Layout is the result of splitting a sample.
//
// The logical vertex array is the concatenation of every split's vertex
// buffer. When the whole sample fits in one split it is the sample's own
// vertex array; otherwise vertices are renumbered in first-reference order
// per split, and a vertex shared by two splits appears in both.
type Layout struct {
	Splits    []Split
	Submeshes []Submesh

	// remap maps logical vertex -> sample vertex; nil means identity.
	remap []uint32
	// indices holds split-local indices for all splits, in split order.
	indices     []uint32
	vertexCount int
}

// VertexCount returns the logical vertex count.
func (l *Layout) VertexCount() int { return l.vertexCount }

// IndexCount returns the logical index count.
func (l *Layout) IndexCount() int { return len(l.indices) }

// SourceVertex returns the sample vertex behind logical vertex v.
func (l *Layout) SourceVertex(v int) int {
	if l.remap == nil {
		return v
	}
	return int(l.remap[v])
}

// SplitIndices returns the split-local index list of split i, submeshes
// back to back. The slice aliases the layout and must not be modified.
func (l *Layout) SplitIndices(i int) []uint32 {
	sp := &l.Splits[i]
	return l.indices[sp.IndexOffset : sp.IndexOffset+sp.IndexCount]
}

// Submesh returns submesh sub of split i.
func (l *Layout) Submesh(i, sub int) (Submesh, error) {
	if i < 0 || i >= len(l.Splits) {
		return Submesh{}, fmt.Errorf("split %d of %d: %w", i, len(l.Splits), ErrNoSuchSplit)
	}
	sp := &l.Splits[i]
	if sub < 0 || sub >= sp.SubmeshCount {
		return Submesh{}, fmt.Errorf("submesh %d of %d in split %d: %w", sub, sp.SubmeshCount, i, ErrNoSuchSplit)
	}
	return l.Submeshes[sp.SubmeshOffset+sub], nil
}

// SubmeshIndices returns the split-local indices of submesh sub of split
// i. The slice aliases the layout and must not be modified.
func (l *Layout) SubmeshIndices(i, sub int) ([]uint32, error) {
	sm, err := l.Submesh(i, sub)
	if err != nil {
		return nil, err
	}
	return l.indices[sm.IndexOffset : sm.IndexOffset+sm.IndexCount], nil
}

// SplitSample partitions s into splits of at most limit vertices.
//
// Submeshes are visited in stored order and packed greedily: a submesh
// joins the open split if its distinct vertices fit, otherwise it starts a
// new one. A submesh that alone references more than limit vertices is cut
// at triangle boundaries. The result depends only on s and limit.
func SplitSample(s *Sample, limit int) (*Layout, error) {
	if limit < MinSplitUnit {
		return nil, fmt.Errorf("%w: %d, need at least %d", ErrInvalidLimit, limit, MinSplitUnit)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if s.VertexCount() <= limit {
		return singleSplit(s), nil
	}

	p := newPacker(s, limit)
	for si := range s.Submeshes {
		p.addSubmesh(si)
	}
	return p.finish(), nil
}

func singleSplit(s *Sample) *Layout {
	l := &Layout{
		vertexCount: s.VertexCount(),
		indices:     make([]uint32, 0, s.IndexCount()),
		Submeshes:   make([]Submesh, 0, len(s.Submeshes)),
	}
	for si := range s.Submeshes {
		idx := s.Submeshes[si].Indices
		l.Submeshes = append(l.Submeshes, Submesh{
			SplitIndex:   0,
			SubmeshIndex: si,
			Source:       si,
			IndexCount:   len(idx),
			IndexOffset:  len(l.indices),
		})
		l.indices = append(l.indices, idx...)
	}
	l.Splits = []Split{{
		SubmeshCount: len(l.Submeshes),
		VertexCount:  l.vertexCount,
		IndexCount:   len(l.indices),
		Bounds:       BoundsOf(s.Positions),
	}}
	return l
}

// packer builds a multi-split layout. A sample vertex belongs to the open
// split when owner[v] == gen; local[v] is then its split-local index.
type packer struct {
	s     *Sample
	limit int

	owner []int32
	local []uint32
	gen   int32

	probe    []int32
	probeGen int32

	layout *Layout
	open   bool // a split is being filled
	piece  int  // index into layout.Submeshes of the open piece, -1 if none
}

func newPacker(s *Sample, limit int) *packer {
	n := s.VertexCount()
	return &packer{
		s:     s,
		limit: limit,
		owner: make([]int32, n),
		local: make([]uint32, n),
		probe: make([]int32, n),
		layout: &Layout{
			remap:   make([]uint32, 0, n),
			indices: make([]uint32, 0, s.IndexCount()),
		},
		piece: -1,
	}
}

func (p *packer) cur() *Split {
	return &p.layout.Splits[len(p.layout.Splits)-1]
}

func (p *packer) startSplit() {
	p.gen++
	p.layout.Splits = append(p.layout.Splits, Split{
		SubmeshOffset: len(p.layout.Submeshes),
		VertexOffset:  len(p.layout.remap),
		IndexOffset:   len(p.layout.indices),
		Bounds:        EmptyBounds(),
	})
	p.open = true
	p.piece = -1
}

func (p *packer) startPiece(source int) {
	sp := p.cur()
	p.layout.Submeshes = append(p.layout.Submeshes, Submesh{
		SplitIndex:   len(p.layout.Splits) - 1,
		SubmeshIndex: sp.SubmeshCount,
		Source:       source,
		IndexOffset:  len(p.layout.indices),
	})
	sp.SubmeshCount++
	p.piece = len(p.layout.Submeshes) - 1
}

// footprint counts the distinct vertices of submesh si that the open split
// does not hold yet.
func (p *packer) footprint(si int) int {
	p.probeGen++
	n := 0
	for _, v := range p.s.Submeshes[si].Indices {
		if p.open && p.owner[v] == p.gen {
			continue
		}
		if p.probe[v] == p.probeGen {
			continue
		}
		p.probe[v] = p.probeGen
		n++
	}
	return n
}

// newInTriangle counts the distinct corners of a triangle missing from the
// open split.
func (p *packer) newInTriangle(a, b, c uint32) int {
	n := 0
	if p.owner[a] != p.gen {
		n++
	}
	if b != a && p.owner[b] != p.gen {
		n++
	}
	if c != a && c != b && p.owner[c] != p.gen {
		n++
	}
	return n
}

func (p *packer) addSubmesh(si int) {
	if !p.open {
		p.startSplit()
	} else if sp := p.cur(); sp.VertexCount > 0 && sp.VertexCount+p.footprint(si) > p.limit {
		p.startSplit()
	}
	p.startPiece(si)

	idx := p.s.Submeshes[si].Indices
	for t := 0; t+2 < len(idx); t += 3 {
		a, b, c := idx[t], idx[t+1], idx[t+2]
		if p.cur().VertexCount+p.newInTriangle(a, b, c) > p.limit {
			p.startSplit()
			p.startPiece(si)
		}
		p.addVertex(a)
		p.addVertex(b)
		p.addVertex(c)
	}
}

func (p *packer) addVertex(v uint32) {
	sp := p.cur()
	if p.owner[v] != p.gen {
		p.owner[v] = p.gen
		p.local[v] = uint32(sp.VertexCount)
		p.layout.remap = append(p.layout.remap, v)
		sp.VertexCount++
		sp.Bounds.Extend(p.s.Positions[v])
	}
	p.layout.indices = append(p.layout.indices, p.local[v])
	sp.IndexCount++
	p.layout.Submeshes[p.piece].IndexCount++
}

func (p *packer) finish() *Layout {
	l := p.layout
	l.vertexCount = len(l.remap)
	if len(l.Splits) == 0 {
		// No submeshes at all: nothing references any vertex.
		l.Splits = []Split{{Bounds: EmptyBounds()}}
	}
	return l
}
