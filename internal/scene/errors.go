package scene

import (
	"errors"

	"github.com/Faultbox/abcstream/internal/mesh"
	"github.com/Faultbox/abcstream/internal/sampling"
)

var (
	ErrNotFound      = errors.New("node not found")
	ErrInvalidConfig = errors.New("invalid import config")
	ErrNotResolved   = errors.New("schema has no resolved sample")
	ErrDuplicatePath = errors.New("duplicate node path")
	ErrSchemaSource  = errors.New("object does not provide samples for its kind")

	// SkipChildren is returned by a Walk callback to skip the node's
	// subtree. It is not reported as an error.
	SkipChildren = errors.New("skip children")

	// Re-exported so callers of this package need a single import.
	ErrOutOfRange      = sampling.ErrOutOfRange
	ErrInvalidLimit    = mesh.ErrInvalidLimit
	ErrMalformedSample = mesh.ErrMalformedSample
	ErrNoSuchSplit     = mesh.ErrNoSuchSplit
)
