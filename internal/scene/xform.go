package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// XformData is a resolved local transform.
type XformData struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	// Inherits is false when the transform ignores its parent's.
	Inherits bool
}

// IdentityXform returns a transform that changes nothing.
func IdentityXform() XformData {
	return XformData{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Inherits: true,
	}
}

// Matrix composes translation, rotation and scale.
func (d XformData) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(d.Translation[0], d.Translation[1], d.Translation[2])
	s := mgl32.Scale3D(d.Scale[0], d.Scale[1], d.Scale[2])
	return t.Mul4(d.Rotation.Mat4()).Mul4(s)
}

// Lerp blends toward o: translation and scale linearly, rotation by slerp.
func (d XformData) Lerp(o XformData, alpha float32) XformData {
	return XformData{
		Translation: d.Translation.Add(o.Translation.Sub(d.Translation).Mul(alpha)),
		Rotation:    mgl32.QuatSlerp(d.Rotation, o.Rotation, alpha),
		Scale:       d.Scale.Add(o.Scale.Sub(d.Scale).Mul(alpha)),
		Inherits:    d.Inherits,
	}
}

func xformFromCache(raw *cache.XformSample, swapHandedness bool) XformData {
	d := XformData{
		Translation: raw.Translation,
		Rotation:    raw.Rotation.Normalize(),
		Scale:       raw.Scale,
		Inherits:    raw.Inherits,
	}
	if swapHandedness {
		// Mirroring X flips the rotation axis components on Y and Z.
		d.Translation[0] = -d.Translation[0]
		d.Rotation.V[1] = -d.Rotation.V[1]
		d.Rotation.V[2] = -d.Rotation.V[2]
	}
	return d
}

// Xform is a transform schema.
type Xform struct {
	base
	src cache.XformSource

	data XformData
	next XformData
}

// Data returns the transform of the resolved stored sample.
func (x *Xform) Data() XformData {
	return x.data
}

// Blended returns the transform interpolated toward the secondary stored
// sample. Without a secondary sample it equals Data.
func (x *Xform) Blended() XformData {
	if !x.res.Interpolated() {
		return x.data
	}
	return x.data.Lerp(x.next, float32(x.res.Alpha))
}

// Summary implements Schema.
func (x *Xform) Summary() Summary {
	return Summary{Kind: x.kind, TimeSampling: x.TimeSampling(), Constant: x.constant}
}

// UpdateSample implements Schema.
func (x *Xform) UpdateSample(sel sampling.Selector) error {
	res, rebuild, err := x.resolve(sel)
	if err != nil {
		return err
	}

	data := x.data
	if rebuild {
		raw, err := x.src.XformSample(res.Index)
		if err != nil {
			return x.fail(res.Index, err)
		}
		data = xformFromCache(raw, x.cfg.SwapHandedness)
	}

	// The secondary sample is refreshed whenever it moves, even if the
	// primary did not.
	next := data
	if res.Interpolated() {
		if res.NextIndex == x.res.NextIndex && !rebuild && x.res.Interpolated() {
			next = x.next
		} else {
			raw, err := x.src.XformSample(res.NextIndex)
			if err != nil {
				return x.fail(res.NextIndex, err)
			}
			next = xformFromCache(raw, x.cfg.SwapHandedness)
		}
	}

	x.data = data
	x.next = next
	x.commit(res, rebuild)
	return nil
}

func (x *Xform) scan() error {
	ts := x.TimeSampling()
	if ts.Count <= 1 {
		x.constant = true
		return nil
	}
	first, err := x.src.XformSample(0)
	if err != nil {
		return err
	}
	for i := 1; i < ts.Count; i++ {
		s, err := x.src.XformSample(i)
		if err != nil {
			return err
		}
		if *s != *first {
			return nil
		}
	}
	x.constant = true
	return nil
}
