package snap

import "runtime"

// Default tuning values.
const (
	DefaultSnapDistance      float32 = 2
	DefaultNormalTolerance   float32 = -0.95
	DefaultMaxConnections            = 1
	DefaultRotationStep      float32 = 90
	DefaultRotationTolerance float32 = 0.5
)

// Options configures snap resolution.
type Options struct {
	// SnapDistance is the maximum distance between two snap points, and the
	// margin added to bounding boxes in the broad phase.
	SnapDistance float32

	// NormalTolerance is the largest dot product two world normals may have
	// and still count as facing each other.
	NormalTolerance float32

	// DefaultMaxConnections applies to snap points without their own cap.
	DefaultMaxConnections int

	// RotationStep and RotationTolerance are in degrees.
	RotationStep      float32
	RotationTolerance float32

	// Workers bounds the parallel candidate search. Zero means GOMAXPROCS.
	Workers int
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.SnapDistance <= 0 {
		o.SnapDistance = DefaultSnapDistance
	}
	if o.NormalTolerance == 0 {
		o.NormalTolerance = DefaultNormalTolerance
	}
	if o.DefaultMaxConnections <= 0 {
		o.DefaultMaxConnections = DefaultMaxConnections
	}
	if o.RotationStep <= 0 {
		o.RotationStep = DefaultRotationStep
	}
	if o.RotationTolerance <= 0 {
		o.RotationTolerance = DefaultRotationTolerance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}
