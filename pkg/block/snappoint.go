package block

import (
	"slices"

	"cogentcore.org/core/math32"
)

// SnapType tags a snap point with its position on the block.
type SnapType string

const (
	SnapEdge   SnapType = "edge"
	SnapCorner SnapType = "corner"
	SnapCenter SnapType = "center"
	SnapCustom SnapType = "custom"
)

// SnapPoint is an attachment location in block-local space. Normal points
// away from the surface; two snap points join when their world normals face
// each other.
type SnapPoint struct {
	ID          string         `json:"id"`
	Position    math32.Vector3 `json:"position"`
	Normal      math32.Vector3 `json:"normal"`
	Type        SnapType       `json:"type"`
	Enabled     bool           `json:"enabled"`
	Constraints *Constraints   `json:"constraints,omitempty"`
}

// Constraints restrict which partners a snap point accepts.
type Constraints struct {
	// AllowedBlockTypes lists partner block ids or geometry types. Empty
	// means any.
	AllowedBlockTypes []string `json:"allowedBlockTypes,omitempty"`
	// AllowedCategories lists partner block categories. Empty means any.
	AllowedCategories []string `json:"allowedCategories,omitempty"`
	// MaxConnections caps valid connections at this snap point. Nil falls
	// back to the project default.
	MaxConnections *int `json:"maxConnections,omitempty"`
	// RotationLocked requires the relative rotation of the two instances
	// to be a multiple of RotationStep.
	RotationLocked bool `json:"rotationLocked,omitempty"`
	// RotationStep in degrees; zero falls back to the project default.
	RotationStep float32 `json:"rotationStep,omitempty"`
}

// MaxConnectionsOr returns the snap point's cap, or def when unset.
func (sp *SnapPoint) MaxConnectionsOr(def int) int {
	if sp.Constraints == nil || sp.Constraints.MaxConnections == nil {
		return def
	}
	return *sp.Constraints.MaxConnections
}

// Accepts reports whether the constraints admit a partner block. An empty
// allow list admits everything.
func (c *Constraints) Accepts(partner *Block) (typeOK, categoryOK bool) {
	if c == nil {
		return true, true
	}
	typeOK = len(c.AllowedBlockTypes) == 0 ||
		slices.Contains(c.AllowedBlockTypes, partner.ID) ||
		slices.Contains(c.AllowedBlockTypes, string(partner.Geometry.Type))
	categoryOK = len(c.AllowedCategories) == 0 ||
		slices.Contains(c.AllowedCategories, partner.Metadata.Category)
	return typeOK, categoryOK
}

func (sp SnapPoint) clone() SnapPoint {
	if sp.Constraints == nil {
		return sp
	}
	c := *sp.Constraints
	c.AllowedBlockTypes = slices.Clone(c.AllowedBlockTypes)
	c.AllowedCategories = slices.Clone(c.AllowedCategories)
	if c.MaxConnections != nil {
		n := *c.MaxConnections
		c.MaxConnections = &n
	}
	sp.Constraints = &c
	return sp
}

// FaceSnapPoints returns one center snap point per box face, with outward
// normals. Ids are "+x", "-x", "+y", "-y", "+z", "-z".
func FaceSnapPoints(width, height, depth float32) []SnapPoint {
	w, h, d := width/2, height/2, depth/2
	face := func(id string, pos, normal math32.Vector3) SnapPoint {
		return SnapPoint{ID: id, Position: pos, Normal: normal, Type: SnapCenter, Enabled: true}
	}
	return []SnapPoint{
		face("+x", math32.Vec3(w, 0, 0), math32.Vec3(1, 0, 0)),
		face("-x", math32.Vec3(-w, 0, 0), math32.Vec3(-1, 0, 0)),
		face("+y", math32.Vec3(0, h, 0), math32.Vec3(0, 1, 0)),
		face("-y", math32.Vec3(0, -h, 0), math32.Vec3(0, -1, 0)),
		face("+z", math32.Vec3(0, 0, d), math32.Vec3(0, 0, 1)),
		face("-z", math32.Vec3(0, 0, -d), math32.Vec3(0, 0, -1)),
	}
}

// CornerSnapPoints returns the 8 box corners as snap points whose normals
// point along ±X, the layout used by brick catalogs. Ids are "c0".."c7".
func CornerSnapPoints(width, height, depth float32) []SnapPoint {
	w, h, d := width/2, height/2, depth/2
	var out []SnapPoint
	i := 0
	for _, y := range []float32{-h, h} {
		for _, z := range []float32{-d, d} {
			for _, x := range []float32{-w, w} {
				out = append(out, SnapPoint{
					ID:       "c" + string(rune('0'+i)),
					Position: math32.Vec3(x, y, z),
					Normal:   math32.Vec3(math32.Sign(x), 0, 0),
					Type:     SnapCorner,
					Enabled:  true,
				})
				i++
			}
		}
	}
	return out
}
