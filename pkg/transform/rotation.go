package transform

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// RotationKind is the discriminant of [Rotation].
type RotationKind uint8

const (
	// RotationEuler stores XYZ-order Euler angles in radians.
	RotationEuler RotationKind = iota
	// RotationQuat stores a unit quaternion.
	RotationQuat
)

func (k RotationKind) String() string {
	switch k {
	case RotationEuler:
		return "euler"
	case RotationQuat:
		return "quat"
	}
	return fmt.Sprintf("RotationKind(%d)", k)
}

// Rotation is either a set of Euler angles or a quaternion. Input sources
// differ (sliders produce angles, gizmos produce quaternions) so both are kept
// as given; conversions are explicit.
//
// The zero value is the identity rotation in Euler form.
type Rotation struct {
	Kind  RotationKind
	Euler math32.Vector3 // radians, valid when Kind == RotationEuler
	Quat  math32.Quat    // valid when Kind == RotationQuat
}

// EulerRotation returns a rotation from XYZ Euler angles in radians.
func EulerRotation(x, y, z float32) Rotation {
	return Rotation{Kind: RotationEuler, Euler: math32.Vec3(x, y, z)}
}

// EulerDegrees returns a rotation from XYZ Euler angles in degrees.
func EulerDegrees(x, y, z float32) Rotation {
	return EulerRotation(math32.DegToRad(x), math32.DegToRad(y), math32.DegToRad(z))
}

// QuatRotation returns a rotation from a quaternion, normalized to unit length.
// A zero quaternion is treated as the identity.
func QuatRotation(q math32.Quat) Rotation {
	if q.IsNil() {
		q.SetIdentity()
	}
	q.Normalize()
	return Rotation{Kind: RotationQuat, Quat: q}
}

// ToQuat converts the rotation to a quaternion.
func (r Rotation) ToQuat() math32.Quat {
	if r.Kind == RotationQuat {
		return r.Quat
	}
	return math32.NewQuatEuler(r.Euler)
}

// ToEuler converts the rotation to XYZ Euler angles in radians.
func (r Rotation) ToEuler() math32.Vector3 {
	if r.Kind == RotationEuler {
		return r.Euler
	}
	q := r.Quat
	return q.ToEuler()
}

// AsEuler returns the same rotation in Euler form.
func (r Rotation) AsEuler() Rotation {
	return Rotation{Kind: RotationEuler, Euler: r.ToEuler()}
}

// AsQuat returns the same rotation in quaternion form.
func (r Rotation) AsQuat() Rotation {
	return Rotation{Kind: RotationQuat, Quat: r.ToQuat()}
}

// Equal reports whether both rotations have the same kind and bit-identical
// components.
func (r Rotation) Equal(o Rotation) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == RotationQuat {
		return r.Quat == o.Quat
	}
	return r.Euler == o.Euler
}

func (r Rotation) String() string {
	if r.Kind == RotationQuat {
		return fmt.Sprintf("quat(%g, %g, %g, %g)", r.Quat.X, r.Quat.Y, r.Quat.Z, r.Quat.W)
	}
	return fmt.Sprintf("euler(%g, %g, %g)", r.Euler.X, r.Euler.Y, r.Euler.Z)
}
