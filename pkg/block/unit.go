package block

import (
	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Unit is a length unit declared on a block or project. Lengths are stored
// in their declared unit; nothing converts implicitly.
type Unit string

const (
	UnitMillimeter Unit = "mm"
	UnitCentimeter Unit = "cm"
	UnitMeter      Unit = "m"
	UnitInch       Unit = "in"
	UnitFoot       Unit = "ft"
)

// millimeters per unit
var unitScale = map[Unit]float64{
	UnitMillimeter: 1,
	UnitCentimeter: 10,
	UnitMeter:      1000,
	UnitInch:       25.4,
	UnitFoot:       304.8,
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	_, ok := unitScale[u]
	return ok
}

// Convert converts v from one unit to another. It is meant for callers at
// the boundary that need to mix entities declared in different units.
func Convert(v float32, from, to Unit) (float32, error) {
	fs, ok := unitScale[from]
	if !ok {
		return 0, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown unit %q", from)
	}
	ts, ok := unitScale[to]
	if !ok {
		return 0, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown unit %q", to)
	}
	if from == to {
		return v, nil
	}
	return float32(float64(v) * fs / ts), nil
}
