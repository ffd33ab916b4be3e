package scene

import (
	gomath "math"

	"github.com/Faultbox/abcstream/internal/sampling"
	"github.com/Faultbox/abcstream/pkg/cache"
)

// CameraData is a resolved camera.
type CameraData struct {
	NearClippingPlane float32
	FarClippingPlane  float32
	// FieldOfView is the vertical field of view in degrees.
	FieldOfView float32
	AspectRatio float32

	FocusDistance float32 // cm
	FocalLength   float32 // mm
	Aperture      float32 // cm, vertical
}

func cameraFromCache(raw *cache.CameraSample, aspectOverride float32) CameraData {
	d := CameraData{
		NearClippingPlane: raw.NearClippingPlane,
		FarClippingPlane:  raw.FarClippingPlane,
		FocusDistance:     raw.FocusDistance,
		FocalLength:       raw.FocalLength,
		Aperture:          raw.VerticalAperture,
	}

	if raw.FocalLength > 0 && raw.VerticalAperture > 0 {
		// Aperture is stored in cm, focal length in mm.
		half := float64(raw.VerticalAperture) * 10 / (2 * float64(raw.FocalLength))
		d.FieldOfView = float32(2 * gomath.Atan(half) * 180 / gomath.Pi)
	}

	switch {
	case aspectOverride > 0:
		d.AspectRatio = aspectOverride
	case raw.VerticalAperture > 0:
		d.AspectRatio = raw.HorizontalAperture / raw.VerticalAperture
	default:
		d.AspectRatio = 1
	}
	return d
}

// Camera is a camera schema.
type Camera struct {
	base
	src cache.CameraSource

	data CameraData
}

// Data returns the resolved camera.
func (c *Camera) Data() CameraData {
	return c.data
}

// Summary implements Schema.
func (c *Camera) Summary() Summary {
	return Summary{Kind: c.kind, TimeSampling: c.TimeSampling(), Constant: c.constant}
}

// UpdateSample implements Schema.
func (c *Camera) UpdateSample(sel sampling.Selector) error {
	res, rebuild, err := c.resolve(sel)
	if err != nil {
		return err
	}
	if rebuild {
		raw, err := c.src.CameraSample(res.Index)
		if err != nil {
			return c.fail(res.Index, err)
		}
		c.data = cameraFromCache(raw, c.cfg.AspectRatio)
	}
	c.commit(res, rebuild)
	return nil
}

func (c *Camera) scan() error {
	ts := c.TimeSampling()
	if ts.Count <= 1 {
		c.constant = true
		return nil
	}
	first, err := c.src.CameraSample(0)
	if err != nil {
		return err
	}
	for i := 1; i < ts.Count; i++ {
		s, err := c.src.CameraSample(i)
		if err != nil {
			return err
		}
		if *s != *first {
			return nil
		}
	}
	c.constant = true
	return nil
}
