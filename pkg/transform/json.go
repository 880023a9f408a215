package transform

import (
	"encoding/json"
	"fmt"

	"cogentcore.org/core/math32"
)

type vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type rotationJSON struct {
	Kind string  `json:"kind"`
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Z    float32 `json:"z"`
	W    float32 `json:"w,omitempty"`
}

type transformJSON struct {
	Position vec3         `json:"position"`
	Rotation rotationJSON `json:"rotation"`
	Scale    vec3         `json:"scale"`
}

func toVec3(v math32.Vector3) vec3   { return vec3{v.X, v.Y, v.Z} }
func (v vec3) vector() math32.Vector3 { return math32.Vec3(v.X, v.Y, v.Z) }

// MarshalJSON encodes the components, keeping the rotation kind. float32
// values are written in shortest form and read back bit-exact.
func (t *Transform) MarshalJSON() ([]byte, error) {
	out := transformJSON{
		Position: toVec3(t.position),
		Scale:    toVec3(t.scale),
	}
	switch t.rotation.Kind {
	case RotationQuat:
		q := t.rotation.Quat
		out.Rotation = rotationJSON{Kind: RotationQuat.String(), X: q.X, Y: q.Y, Z: q.Z, W: q.W}
	default:
		e := t.rotation.Euler
		out.Rotation = rotationJSON{Kind: RotationEuler.String(), X: e.X, Y: e.Y, Z: e.Z}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a transform written by MarshalJSON. A missing
// rotation kind means Euler angles.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var in transformJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var rot Rotation
	switch in.Rotation.Kind {
	case "", RotationEuler.String():
		rot = EulerRotation(in.Rotation.X, in.Rotation.Y, in.Rotation.Z)
	case RotationQuat.String():
		// stored quaternions are already unit length; keep the bits as written
		rot = Rotation{Kind: RotationQuat, Quat: math32.NewQuat(in.Rotation.X, in.Rotation.Y, in.Rotation.Z, in.Rotation.W)}
	default:
		return fmt.Errorf("unknown rotation kind %q", in.Rotation.Kind)
	}
	*t = Transform{position: in.Position.vector(), rotation: rot, scale: in.Scale.vector()}
	return nil
}
