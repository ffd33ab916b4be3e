package scene

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/abcstream/internal/mesh"
	"github.com/Faultbox/abcstream/internal/metrics"
	"github.com/Faultbox/abcstream/internal/points"
	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// Schema is the data attached to a node. Concrete schemas are *Xform,
// *Camera, *PolyMesh and *Points; switch on Kind or use a type switch.
//
// A schema is not safe for concurrent use. Different schemas may be
// updated concurrently.
type Schema interface {
	Kind() cache.Kind
	Path() string
	Summary() Summary

	// UpdateSample resolves sel and, when the stored index changed,
	// materializes the new sample. On error the previous sample is kept.
	UpdateSample(sel sampling.Selector) error
	// MarkForceUpdate makes the next UpdateSample rebuild its sample.
	MarkForceUpdate()
	IsConstant() bool
	// Dirty reports whether the last UpdateSample changed the sample.
	Dirty() bool
	Resolution() sampling.Resolution

	Properties() []cache.Property
	PropertyByName(name string) (cache.Property, bool)
}

// Summary is the static description of a schema, computed at load.
// Mesh and Points are set only for the matching kind.
type Summary struct {
	Kind         cache.Kind
	TimeSampling cache.TimeSampling
	Constant     bool
	Mesh         *mesh.Summary
	Points       *points.Summary
}

// base carries what every schema kind shares.
type base struct {
	path     string
	kind     cache.Kind
	resolver *sampling.Resolver
	res      sampling.Resolution
	dirty    bool
	resolved bool
	constant bool
	props    []cache.Property
	cfg      ImportConfig
	log      *zap.Logger
	metrics  *metrics.Recorder
}

func newBase(path string, obj cache.Object, cfg ImportConfig, log *zap.Logger, rec *metrics.Recorder) base {
	return base{
		path:     path,
		kind:     obj.Kind(),
		resolver: sampling.NewResolver(obj.TimeSampling()),
		props:    obj.Properties(),
		cfg:      cfg,
		log:      log.With(zap.String("path", path), zap.Stringer("kind", obj.Kind())),
		metrics:  rec,
	}
}

func (b *base) Kind() cache.Kind                 { return b.kind }
func (b *base) Path() string                     { return b.path }
func (b *base) IsConstant() bool                 { return b.constant }
func (b *base) Dirty() bool                      { return b.dirty }
func (b *base) Resolution() sampling.Resolution  { return b.res }
func (b *base) Properties() []cache.Property     { return b.props }
func (b *base) TimeSampling() cache.TimeSampling { return b.resolver.Sampling() }
func (b *base) MarkForceUpdate()                 { b.resolver.MarkForceUpdate() }

// PropertyByName returns the first user property with the given name.
func (b *base) PropertyByName(name string) (cache.Property, bool) {
	for _, p := range b.props {
		if p.Name == name {
			return p, true
		}
	}
	return cache.Property{}, false
}

// resolve runs the resolver. It reports whether the sample has to be
// rebuilt, which is also the case before the first successful build.
func (b *base) resolve(sel sampling.Selector) (sampling.Resolution, bool, error) {
	res, err := b.resolver.Resolve(sel)
	if err != nil {
		b.dirty = false
		b.metrics.Failed(b.kind.String(), "out_of_range")
		return sampling.Resolution{}, false, fmt.Errorf("%s: %w", b.path, err)
	}
	return res, res.Changed || !b.resolved, nil
}

// commit records a finished resolution.
func (b *base) commit(res sampling.Resolution, rebuilt bool) {
	b.res = res
	b.dirty = rebuilt
	if rebuilt {
		b.resolved = true
	}
	b.metrics.Resolved(b.kind.String(), rebuilt)
}

// fail keeps the last good sample and forces the next resolution to retry.
func (b *base) fail(index int, err error) error {
	b.dirty = false
	b.resolver.MarkForceUpdate()

	reason := "read"
	if errors.Is(err, mesh.ErrMalformedSample) {
		reason = "malformed"
	}
	b.metrics.Failed(b.kind.String(), reason)
	b.log.Warn("keeping previous sample", zap.Int("index", index), zap.Error(err))
	return fmt.Errorf("%s: sample %d: %w", b.path, index, err)
}
