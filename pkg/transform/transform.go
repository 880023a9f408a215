// Package transform holds the placement of a block instance: position,
// rotation and non-uniform scale, plus the derived affine matrix.
//
// # Composition
//
// [Transform.Matrix] composes scale, then rotation, then translation:
//
//	world = T * R * S * local
//
// The matrix and the last computed world box are cached. Every setter
// invalidates the cache; recomputation happens on the next read, so a drag
// that updates position, rotation and scale in sequence costs one matrix
// build, not three.
//
// # Concurrency
//
// A Transform is not safe for concurrent use: reads may fill the cache.
package transform

import (
	"cogentcore.org/core/math32"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Transform is the placement of one instance.
//
// The zero value is not the identity (its scale is zero); use [Identity],
// [At] or [New].
type Transform struct {
	position math32.Vector3
	rotation Rotation
	scale    math32.Vector3

	matrix      math32.Matrix4
	matrixValid bool

	local       math32.Box3
	bounds      math32.Box3
	boundsValid bool

	recomputes int
}

// New returns a transform with the given components.
func New(position math32.Vector3, rotation Rotation, scale math32.Vector3) *Transform {
	return &Transform{position: position, rotation: rotation, scale: scale}
}

// Identity returns a transform at the origin with no rotation and unit scale.
func Identity() *Transform {
	return New(math32.Vector3{}, Rotation{}, math32.Vec3(1, 1, 1))
}

// At returns an unrotated, unit-scale transform at (x, y, z).
func At(x, y, z float32) *Transform {
	return New(math32.Vec3(x, y, z), Rotation{}, math32.Vec3(1, 1, 1))
}

// Position returns the translation component.
func (t *Transform) Position() math32.Vector3 { return t.position }

// Rotation returns the rotation component as it was set.
func (t *Transform) Rotation() Rotation { return t.rotation }

// Scale returns the scale component.
func (t *Transform) Scale() math32.Vector3 { return t.scale }

// Quat returns the rotation as a quaternion.
func (t *Transform) Quat() math32.Quat { return t.rotation.ToQuat() }

// SetPosition replaces the translation and invalidates cached values.
func (t *Transform) SetPosition(p math32.Vector3) {
	t.position = p
	t.invalidate()
}

// SetRotation replaces the rotation and invalidates cached values.
func (t *Transform) SetRotation(r Rotation) {
	t.rotation = r
	t.invalidate()
}

// SetScale replaces the scale and invalidates cached values.
func (t *Transform) SetScale(s math32.Vector3) {
	t.scale = s
	t.invalidate()
}

func (t *Transform) invalidate() {
	t.matrixValid = false
	t.boundsValid = false
}

// Matrix returns the 4x4 affine matrix, building it if the cache is stale.
func (t *Transform) Matrix() math32.Matrix4 {
	if !t.matrixValid {
		t.matrix.SetTransform(t.position, t.rotation.ToQuat(), t.scale)
		t.matrixValid = true
		t.recomputes++
	}
	return t.matrix
}

// Bounds returns the axis-aligned box enclosing local after this transform.
// All 8 corners are transformed and reduced componentwise, so rotation grows
// the box as needed. The result is cached for the most recent local box.
func (t *Transform) Bounds(local math32.Box3) math32.Box3 {
	if t.boundsValid && t.local == local {
		return t.bounds
	}
	m := t.Matrix()
	corners := Corners(local)
	for i := range corners {
		corners[i] = corners[i].MulMatrix4(&m)
	}
	var box math32.Box3
	box.SetFromPoints(corners[:])
	t.local = local
	t.bounds = box
	t.boundsValid = true
	return box
}

// Apply maps a local point to world space.
func (t *Transform) Apply(p math32.Vector3) math32.Vector3 {
	m := t.Matrix()
	return p.MulMatrix4(&m)
}

// Rotate maps a local direction to world space: rotation only, no scale or
// translation. The result is unit length for unit input.
func (t *Transform) Rotate(d math32.Vector3) math32.Vector3 {
	return d.MulQuat(t.rotation.ToQuat())
}

// Recomputes reports how many times the matrix has been rebuilt.
func (t *Transform) Recomputes() int { return t.recomputes }

// Clone returns an independent copy, cache included.
func (t *Transform) Clone() *Transform {
	c := *t
	return &c
}

// Equal reports bit-identical position, rotation and scale.
func (t *Transform) Equal(o *Transform) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.position == o.position && t.scale == o.scale && t.rotation.Equal(o.rotation)
}

// Validate rejects transforms that cannot place a block: non-finite
// components, a scale axis at or below zero, or a zero quaternion.
func (t *Transform) Validate() error {
	p, s := t.position, t.scale
	for _, v := range [...]float32{p.X, p.Y, p.Z, s.X, s.Y, s.Z} {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "transform has a non-finite component")
		}
	}
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "scale must be positive, got (%g, %g, %g)", s.X, s.Y, s.Z)
	}
	switch r := t.rotation; r.Kind {
	case RotationQuat:
		if q := r.Quat; q.IsNil() || math32.IsNaN(q.Length()) {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "rotation quaternion must be non-zero")
		}
	default:
		e := r.Euler
		for _, v := range [...]float32{e.X, e.Y, e.Z} {
			if math32.IsNaN(v) || math32.IsInf(v, 0) {
				return bferrors.New(bferrors.ErrCodeInvalidInput, "rotation has a non-finite angle")
			}
		}
	}
	return nil
}

// Corners returns the 8 corners of b in a fixed order.
func Corners(b math32.Box3) [8]math32.Vector3 {
	return [8]math32.Vector3{
		math32.Vec3(b.Min.X, b.Min.Y, b.Min.Z),
		math32.Vec3(b.Min.X, b.Min.Y, b.Max.Z),
		math32.Vec3(b.Min.X, b.Max.Y, b.Min.Z),
		math32.Vec3(b.Min.X, b.Max.Y, b.Max.Z),
		math32.Vec3(b.Max.X, b.Min.Y, b.Min.Z),
		math32.Vec3(b.Max.X, b.Min.Y, b.Max.Z),
		math32.Vec3(b.Max.X, b.Max.Y, b.Min.Z),
		math32.Vec3(b.Max.X, b.Max.Y, b.Max.Z),
	}
}
