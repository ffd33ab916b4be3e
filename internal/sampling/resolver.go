package sampling

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/abcstream/pkg/cache"
)

// timeEpsilon absorbs float drift when a requested time lands exactly on a
// stored sample, as a fraction of the sample interval.
const timeEpsilon = 1e-9

// Resolution is the outcome of resolving one selector.
type Resolution struct {
	// Index is the stored sample to use.
	Index int
	// NextIndex and Alpha describe the blend toward the following sample.
	// Alpha is 0 (and NextIndex == Index) unless linear interpolation was
	// requested and the time falls strictly between two stored samples.
	NextIndex int
	Alpha     float64
	// Changed is true when Index differs from the previous resolution or a
	// force update was pending.
	Changed bool
}

// Interpolated reports whether a secondary sample contributes.
func (r Resolution) Interpolated() bool {
	return r.Alpha > 0 && r.NextIndex != r.Index
}

// Resolver tracks the last resolved index of one schema.
// It is not safe for concurrent use; each schema owns its resolver.
type Resolver struct {
	sampling cache.TimeSampling
	last     int
	resolved bool
	force    bool
}

// NewResolver creates a resolver over the given stored sample timing.
func NewResolver(ts cache.TimeSampling) *Resolver {
	return &Resolver{sampling: ts, last: -1}
}

// Sampling returns the stored sample timing.
func (r *Resolver) Sampling() cache.TimeSampling {
	return r.sampling
}

// Last returns the previously resolved index, or -1 before the first
// resolution.
func (r *Resolver) Last() int {
	return r.last
}

// MarkForceUpdate makes the next Resolve report Changed even if it picks
// the same stored index.
func (r *Resolver) MarkForceUpdate() {
	r.force = true
}

// Resolve picks the stored sample for sel and updates the change tracking.
// On error the previous state is left untouched.
func (r *Resolver) Resolve(sel Selector) (Resolution, error) {
	res, err := Lookup(r.sampling, sel)
	if err != nil {
		return Resolution{}, err
	}

	res.Changed = !r.resolved || r.force || res.Index != r.last
	r.last = res.Index
	r.resolved = true
	r.force = false
	return res, nil
}

// Lookup resolves sel against ts without any change tracking.
func Lookup(ts cache.TimeSampling, sel Selector) (Resolution, error) {
	if ts.Count <= 0 {
		return Resolution{}, fmt.Errorf("%w: no stored samples", ErrOutOfRange)
	}

	if sel.Mode() == ByIndex {
		if sel.Index() >= uint64(ts.Count) {
			return Resolution{}, fmt.Errorf("%w: index %d, %d stored", ErrOutOfRange, sel.Index(), ts.Count)
		}
		i := int(sel.Index())
		return Resolution{Index: i, NextIndex: i}, nil
	}

	if ts.Count == 1 || ts.Interval <= 0 {
		return Resolution{Index: 0, NextIndex: 0}, nil
	}

	pos := (sel.Time() - ts.Start) / ts.Interval
	if gomath.IsNaN(pos) {
		return Resolution{Index: 0, NextIndex: 0}, nil
	}

	// Clamp before converting to int so huge or infinite times cannot
	// overflow the index.
	last := ts.Count - 1
	switch {
	case pos <= 0:
		return Resolution{Index: 0, NextIndex: 0}, nil
	case pos+timeEpsilon >= float64(last):
		return Resolution{Index: last, NextIndex: last}, nil
	}
	idx := int(gomath.Floor(pos + timeEpsilon))

	res := Resolution{Index: idx, NextIndex: idx}
	if sel.Interpolation() == Linear {
		alpha := pos - float64(idx)
		if alpha > timeEpsilon {
			res.NextIndex = idx + 1
			res.Alpha = gomath.Min(alpha, 1)
		}
	}
	return res, nil
}
