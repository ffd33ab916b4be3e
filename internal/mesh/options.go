package mesh

import "fmt"

// NormalsMode selects where vertex normals come from.
type NormalsMode int

const (
	NormalsReadFromFile NormalsMode = iota
	NormalsComputeIfMissing
	NormalsAlwaysCompute
	NormalsIgnore
)

// String returns the mode name.
func (m NormalsMode) String() string {
	switch m {
	case NormalsReadFromFile:
		return "ReadFromFile"
	case NormalsComputeIfMissing:
		return "ComputeIfMissing"
	case NormalsAlwaysCompute:
		return "AlwaysCompute"
	case NormalsIgnore:
		return "Ignore"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseNormalsMode converts a mode name.
func ParseNormalsMode(s string) (NormalsMode, error) {
	for m := NormalsReadFromFile; m <= NormalsIgnore; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown normals mode %q", s)
}

// TangentsMode selects whether tangents are generated.
type TangentsMode int

const (
	TangentsNone TangentsMode = iota
	TangentsCompute
)

// String returns the mode name.
func (m TangentsMode) String() string {
	switch m {
	case TangentsNone:
		return "None"
	case TangentsCompute:
		return "Compute"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseTangentsMode converts a mode name.
func ParseTangentsMode(s string) (TangentsMode, error) {
	switch s {
	case "None":
		return TangentsNone, nil
	case "Compute":
		return TangentsCompute, nil
	}
	return 0, fmt.Errorf("unknown tangents mode %q", s)
}

// BuildOptions controls how a stored sample is converted.
type BuildOptions struct {
	Normals  NormalsMode
	Tangents TangentsMode
	// SwapHandedness mirrors X to convert between right- and left-handed
	// coordinate systems.
	SwapHandedness bool
	// SwapFaceWinding reverses the corner order of every triangle.
	SwapFaceWinding bool
	// TurnQuadEdges triangulates quads along the 1-3 diagonal instead of 0-2.
	TurnQuadEdges bool
	// VertexMotionScale multiplies stored velocities.
	VertexMotionScale float32
}

// DefaultBuildOptions matches the importer defaults.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Normals:           NormalsComputeIfMissing,
		Tangents:          TangentsNone,
		SwapHandedness:    true,
		VertexMotionScale: 1,
	}
}
