// Package sampling maps requested times or indices onto stored cache
// samples.
package sampling

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an index selector addresses a sample past
// the end of the stored range.
var ErrOutOfRange = errors.New("sample index out of range")

// Mode says which field of a Selector is meaningful.
type Mode int

const (
	ByIndex Mode = iota
	ByTime
)

// Interpolation is the time-mode blending policy.
type Interpolation int

const (
	// Nearest resolves to the stored sample at or before the requested time.
	Nearest Interpolation = iota
	// Linear additionally reports the blend weight toward the next sample.
	Linear
)

// Selector is a caller request for a stored sample.
type Selector struct {
	mode          Mode
	index         uint64
	time          float64
	interpolation Interpolation
}

// IndexSelector requests stored sample i directly.
func IndexSelector(i uint64) Selector {
	return Selector{mode: ByIndex, index: i}
}

// TimeSelector requests the sample for time t.
func TimeSelector(t float64, interp Interpolation) Selector {
	return Selector{mode: ByTime, time: t, interpolation: interp}
}

// TimeToSelector returns a nearest-sample time selector, the common case
// when playing back without blending.
func TimeToSelector(t float64) Selector {
	return TimeSelector(t, Nearest)
}

// Mode returns the active selection mode.
func (s Selector) Mode() Mode { return s.mode }

// Index returns the requested index. Only meaningful in ByIndex mode.
func (s Selector) Index() uint64 { return s.index }

// Time returns the requested time. Only meaningful in ByTime mode.
func (s Selector) Time() float64 { return s.time }

// Interpolation returns the blending policy. Only meaningful in ByTime mode.
func (s Selector) Interpolation() Interpolation { return s.interpolation }

// String formats the selector for logs.
func (s Selector) String() string {
	if s.mode == ByIndex {
		return fmt.Sprintf("index(%d)", s.index)
	}
	if s.interpolation == Linear {
		return fmt.Sprintf("time(%g, linear)", s.time)
	}
	return fmt.Sprintf("time(%g)", s.time)
}
