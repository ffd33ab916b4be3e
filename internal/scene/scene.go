// Package scene builds the node tree of a cache and resolves the samples of
// every schema for a requested time or index.
package scene

import (
	"context"
	"errors"
	"fmt"
	gomath "math"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/abcstream/internal/logger"
	"github.com/Faultbox/abcstream/internal/metrics"
	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// Node is one element of the scene tree.
type Node struct {
	name     string
	path     string
	parent   *Node
	children []*Node
	schema   Schema
	enabled  bool
}

// Name returns the object name. The root has an empty name.
func (n *Node) Name() string { return n.name }

// Path returns the unique slash-separated path, "/" for the root.
func (n *Node) Path() string { return n.path }

// Parent returns the parent node, nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in source order.
func (n *Node) Children() []*Node { return n.children }

// Schema returns the attached schema, or nil for a plain grouping node.
func (n *Node) Schema() Schema { return n.schema }

// Enabled reports the host-facing visibility flag. It never affects
// sample resolution.
func (n *Node) Enabled() bool { return n.enabled }

// SetEnabled sets the visibility flag.
func (n *Node) SetEnabled(v bool) { n.enabled = v }

// Option customizes Load.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *metrics.Recorder
}

// WithLogger sets the logger. The default is a child of the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records load and resolution metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

// Scene is a loaded cache. Its structure is fixed after Load; Update and
// the schema methods must not be called concurrently on the same Scene.
type Scene struct {
	root    *Node
	byPath  map[string]*Node
	schemas []Schema
	cfg     ImportConfig
	log     *zap.Logger
	metrics *metrics.Recorder

	start  float64
	end    float64
	frames int
}

// Load builds the node tree of r and scans every schema's stored samples.
// Any scan failure aborts the load.
func Load(ctx context.Context, r cache.Reader, cfg ImportConfig, opts ...Option) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("scene")
	}

	began := time.Now()
	s := &Scene{
		byPath:  make(map[string]*Node),
		cfg:     cfg,
		log:     o.log,
		metrics: o.metrics,
	}

	root, err := s.build(nil, r.Root())
	if err != nil {
		return nil, err
	}
	s.root = root

	if err := s.scan(ctx); err != nil {
		return nil, err
	}
	s.computeTimeRange()

	kinds := make(map[string]int)
	for _, sc := range s.schemas {
		kinds[sc.Kind().String()]++
	}
	s.metrics.Loaded(time.Since(began), kinds)
	s.log.Info("scene loaded",
		zap.Int("nodes", len(s.byPath)),
		zap.Int("schemas", len(s.schemas)),
		zap.Any("kinds", kinds),
		zap.Float64("start", s.start),
		zap.Float64("end", s.end),
		zap.Duration("took", time.Since(began)),
	)
	return s, nil
}

func (s *Scene) build(parent *Node, obj cache.Object) (*Node, error) {
	n := &Node{name: obj.Name(), parent: parent, enabled: true}
	if parent == nil {
		n.path = "/"
	} else {
		n.path = path.Join(parent.path, obj.Name())
	}
	if _, dup := s.byPath[n.path]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, n.path)
	}
	s.byPath[n.path] = n

	sc, err := s.newSchema(n.path, obj)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		n.schema = sc
		s.schemas = append(s.schemas, sc)
	}

	for i := 0; i < obj.NumChildren(); i++ {
		child, err := s.build(n, obj.Child(i))
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

func (s *Scene) newSchema(p string, obj cache.Object) (Schema, error) {
	b := func() base { return newBase(p, obj, s.cfg, s.log, s.metrics) }
	bad := func() error { return fmt.Errorf("%s: %w: %s", p, ErrSchemaSource, obj.Kind()) }

	switch obj.Kind() {
	case cache.KindNone:
		return nil, nil
	case cache.KindXform:
		src, ok := obj.(cache.XformSource)
		if !ok {
			return nil, bad()
		}
		return &Xform{base: b(), src: src, data: IdentityXform(), next: IdentityXform()}, nil
	case cache.KindCamera:
		src, ok := obj.(cache.CameraSource)
		if !ok {
			return nil, bad()
		}
		return &Camera{base: b(), src: src}, nil
	case cache.KindPolyMesh:
		src, ok := obj.(cache.MeshSource)
		if !ok {
			return nil, bad()
		}
		return &PolyMesh{base: b(), src: src}, nil
	case cache.KindPoints:
		src, ok := obj.(cache.PointsSource)
		if !ok {
			return nil, bad()
		}
		pts := &Points{base: b(), src: src}
		pts.sorter.Enabled = s.cfg.SortPoints
		pts.sorter.Base = s.cfg.SortBasePosition
		return pts, nil
	default:
		return nil, bad()
	}
}

type scanner interface {
	scan() error
}

// scan runs the load-time pass of every schema in parallel.
func (s *Scene) scan(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.workers())
	for _, sc := range s.schemas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sc.(scanner).scan(); err != nil {
				return fmt.Errorf("scanning %s: %w", sc.Path(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Scene) computeTimeRange() {
	s.start, s.end = gomath.Inf(1), gomath.Inf(-1)
	for _, sc := range s.schemas {
		ts := sc.Summary().TimeSampling
		if ts.Count == 0 {
			continue
		}
		s.start = gomath.Min(s.start, ts.Start)
		s.end = gomath.Max(s.end, ts.End())
		s.frames = max(s.frames, ts.Count)
	}
	if s.frames == 0 {
		s.start, s.end = 0, 0
	}
}

// Root returns the root node.
func (s *Scene) Root() *Node { return s.root }

// Config returns the import configuration the scene was loaded with.
func (s *Scene) Config() ImportConfig { return s.cfg }

// StartTime returns the earliest stored sample time of any schema.
func (s *Scene) StartTime() float64 { return s.start }

// EndTime returns the latest stored sample time of any schema.
func (s *Scene) EndTime() float64 { return s.end }

// FrameCount returns the longest stored sample count of any schema.
func (s *Scene) FrameCount() int { return s.frames }

// Schemas returns every schema in depth-first pre-order.
func (s *Scene) Schemas() []Schema { return s.schemas }

// Find returns the node at path p.
func (s *Scene) Find(p string) (*Node, error) {
	n, ok := s.byPath[normalizePath(p)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return n, nil
}

// Walk calls fn for every node in depth-first pre-order, children in
// source order. Returning SkipChildren skips the node's subtree; any other
// error stops the walk and is returned.
func (s *Scene) Walk(fn func(*Node) error) error {
	err := walk(s.root, fn)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	return err
}

func walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, c := range n.children {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnabledMask sets the enabled flag of every listed path. Unknown
// paths are reported with ErrNotFound and no flag is changed.
func (s *Scene) ApplyEnabledMask(mask map[string]bool) error {
	var missing []string
	for p := range mask {
		if _, ok := s.byPath[normalizePath(p)]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrNotFound, strings.Join(missing, ", "))
	}
	for p, v := range mask {
		s.byPath[normalizePath(p)].enabled = v
	}
	return nil
}

// Update resolves every schema at time t, interpolating when the import
// config asks for it.
func (s *Scene) Update(ctx context.Context, t float64) error {
	interp := sampling.Nearest
	if s.cfg.InterpolateSamples {
		interp = sampling.Linear
	}
	return s.UpdateSelector(ctx, sampling.TimeSelector(t, interp))
}

// UpdateSelector resolves every schema that has stored samples with sel.
// A schema that fails keeps its previous sample and the others proceed.
// The failures are joined into the returned error.
func (s *Scene) UpdateSelector(ctx context.Context, sel sampling.Selector) error {
	began := time.Now()
	errs := make([]error, len(s.schemas))

	var g errgroup.Group
	g.SetLimit(s.cfg.workers())
	for i, sc := range s.schemas {
		if sc.Summary().TimeSampling.Count == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = sc.UpdateSample(sel)
			return nil
		})
	}
	_ = g.Wait()
	s.metrics.Updated(time.Since(began))

	if err := ctx.Err(); err != nil {
		return err
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn("update finished with errors", zap.Stringer("selector", sel), zap.Error(err))
	}
	return err
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
