package cache

import "fmt"

// Archive is a fully resident cache held in memory. It is what the YAML
// fixture loader produces and what tests build directly.
type Archive struct {
	root *Node
}

// NewArchive creates an archive with an unnamed root object.
func NewArchive() *Archive {
	return &Archive{root: &Node{name: ""}}
}

// Root returns the top object.
func (a *Archive) Root() Object {
	return a.root
}

// RootNode returns the root as a *Node so callers can add children.
func (a *Archive) RootNode() *Node {
	return a.root
}

// Node is an in-memory Object. Only the sample slice matching Kind is
// populated; the typed accessors reject the others with ErrWrongKind.
type Node struct {
	name     string
	kind     Kind
	sampling TimeSampling
	props    []Property
	children []*Node

	xforms  []*XformSample
	cameras []*CameraSample
	meshes  []*MeshSample
	points  []*PointsSample
}

// AddChild appends a child object with no schema.
func (n *Node) AddChild(name string) *Node {
	c := &Node{name: name}
	n.children = append(n.children, c)
	return c
}

// AddXform appends a child transform with the given samples.
func (n *Node) AddXform(name string, ts TimeSampling, samples ...*XformSample) *Node {
	c := n.AddChild(name)
	c.kind = KindXform
	c.xforms = samples
	c.sampling = fixCount(ts, len(samples))
	return c
}

// AddCamera appends a child camera with the given samples.
func (n *Node) AddCamera(name string, ts TimeSampling, samples ...*CameraSample) *Node {
	c := n.AddChild(name)
	c.kind = KindCamera
	c.cameras = samples
	c.sampling = fixCount(ts, len(samples))
	return c
}

// AddMesh appends a child polygon mesh with the given samples.
func (n *Node) AddMesh(name string, ts TimeSampling, samples ...*MeshSample) *Node {
	c := n.AddChild(name)
	c.kind = KindPolyMesh
	c.meshes = samples
	c.sampling = fixCount(ts, len(samples))
	return c
}

// AddPoints appends a child point cloud with the given samples.
func (n *Node) AddPoints(name string, ts TimeSampling, samples ...*PointsSample) *Node {
	c := n.AddChild(name)
	c.kind = KindPoints
	c.points = samples
	c.sampling = fixCount(ts, len(samples))
	return c
}

// SetProperties replaces the node's user properties.
func (n *Node) SetProperties(props ...Property) {
	n.props = props
}

func fixCount(ts TimeSampling, n int) TimeSampling {
	ts.Count = n
	if ts.Interval == 0 && n > 1 {
		ts.Interval = 1.0 / 30.0
	}
	return ts
}

// Name returns the object name.
func (n *Node) Name() string { return n.name }

// Kind returns the attached schema kind.
func (n *Node) Kind() Kind { return n.kind }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns child i.
func (n *Node) Child(i int) Object { return n.children[i] }

// TimeSampling returns the sample timing.
func (n *Node) TimeSampling() TimeSampling { return n.sampling }

// Properties returns the user properties.
func (n *Node) Properties() []Property { return n.props }

// XformSample returns stored transform sample index.
func (n *Node) XformSample(index int) (*XformSample, error) {
	if n.kind != KindXform {
		return nil, fmt.Errorf("%s: %w", n.name, ErrWrongKind)
	}
	if err := checkIndex(index, len(n.xforms)); err != nil {
		return nil, err
	}
	return n.xforms[index], nil
}

// CameraSample returns stored camera sample index.
func (n *Node) CameraSample(index int) (*CameraSample, error) {
	if n.kind != KindCamera {
		return nil, fmt.Errorf("%s: %w", n.name, ErrWrongKind)
	}
	if err := checkIndex(index, len(n.cameras)); err != nil {
		return nil, err
	}
	return n.cameras[index], nil
}

// MeshSample returns stored mesh sample index.
func (n *Node) MeshSample(index int) (*MeshSample, error) {
	if n.kind != KindPolyMesh {
		return nil, fmt.Errorf("%s: %w", n.name, ErrWrongKind)
	}
	if err := checkIndex(index, len(n.meshes)); err != nil {
		return nil, err
	}
	return n.meshes[index], nil
}

// PointsSample returns stored points sample index.
func (n *Node) PointsSample(index int) (*PointsSample, error) {
	if n.kind != KindPoints {
		return nil, fmt.Errorf("%s: %w", n.name, ErrWrongKind)
	}
	if err := checkIndex(index, len(n.points)); err != nil {
		return nil, err
	}
	return n.points[index], nil
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %d of %d", ErrSampleIndex, index, count)
	}
	return nil
}
