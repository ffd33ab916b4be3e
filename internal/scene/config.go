package scene

import (
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/internal/mesh"
)

// ImportConfig controls how stored samples are turned into renderer data.
// It is fixed for the lifetime of a Scene.
type ImportConfig struct {
	Normals  mesh.NormalsMode
	Tangents mesh.TangentsMode

	SwapHandedness     bool
	SwapFaceWinding    bool
	InterpolateSamples bool
	TurnQuadEdges      bool

	// AspectRatio overrides the camera aspect ratio; -1 reads it from the
	// stored aperture.
	AspectRatio float32
	// SplitUnit is the maximum vertex count of one split.
	SplitUnit         int
	VertexMotionScale float32

	// SortPoints enables distance sorting of point clouds around
	// SortBasePosition.
	SortPoints       bool
	SortBasePosition mgl32.Vec3

	// Workers bounds the goroutines used by Load and Update. Zero means
	// GOMAXPROCS.
	Workers int
}

// DefaultImportConfig returns the importer defaults.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Normals:            mesh.NormalsComputeIfMissing,
		Tangents:           mesh.TangentsNone,
		SwapHandedness:     true,
		SwapFaceWinding:    false,
		InterpolateSamples: true,
		TurnQuadEdges:      false,
		AspectRatio:        -1,
		SplitUnit:          mesh.DefaultSplitUnit,
		VertexMotionScale:  1,
	}
}

// Validate rejects settings no schema can work with.
func (c ImportConfig) Validate() error {
	if c.SplitUnit < mesh.MinSplitUnit {
		return fmt.Errorf("%w: split unit %d, need at least %d", ErrInvalidConfig, c.SplitUnit, mesh.MinSplitUnit)
	}
	if c.Normals < mesh.NormalsReadFromFile || c.Normals > mesh.NormalsIgnore {
		return fmt.Errorf("%w: normals mode %d", ErrInvalidConfig, c.Normals)
	}
	if c.Tangents != mesh.TangentsNone && c.Tangents != mesh.TangentsCompute {
		return fmt.Errorf("%w: tangents mode %d", ErrInvalidConfig, c.Tangents)
	}
	if c.AspectRatio == 0 {
		return fmt.Errorf("%w: aspect ratio must be positive or -1", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c ImportConfig) buildOptions() mesh.BuildOptions {
	return mesh.BuildOptions{
		Normals:           c.Normals,
		Tangents:          c.Tangents,
		SwapHandedness:    c.SwapHandedness,
		SwapFaceWinding:   c.SwapFaceWinding,
		TurnQuadEdges:     c.TurnQuadEdges,
		VertexMotionScale: c.VertexMotionScale,
	}
}

func (c ImportConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
