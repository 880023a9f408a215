// Package block defines block templates: the immutable description of a
// placeable part's geometry, snap points and catalog metadata.
//
// Blocks are published into a [Library] and referenced by id from placed
// instances. A published block is never changed in place; publishing a new
// revision means a new [Block.Version] under the same id, and older revisions
// stay retrievable with [Library.Version].
package block

import (
	"slices"

	"cogentcore.org/core/math32"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// GeometryType names the primitive a block is built from.
type GeometryType string

const (
	GeometryBox      GeometryType = "box"
	GeometryCylinder GeometryType = "cylinder"
	GeometrySphere   GeometryType = "sphere"
	GeometryCone     GeometryType = "cone"
	GeometryPrism    GeometryType = "prism"
	GeometryExtruded GeometryType = "extruded"
	GeometryCustom   GeometryType = "custom"
)

// Geometry describes the block's extent. The local bounding box is
// width × height × depth centered on Origin.
type Geometry struct {
	Type   GeometryType   `json:"type"`
	Width  float32        `json:"width"`
	Height float32        `json:"height"`
	Depth  float32        `json:"depth"`
	Unit   Unit           `json:"unit"`
	Origin math32.Vector3 `json:"origin"`
}

// Metadata is catalog information used by snap constraints and search.
type Metadata struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Physics holds stored physical attributes. Nothing in this module
// simulates them.
type Physics struct {
	Enabled        bool    `json:"enabled"`
	Mass           float32 `json:"mass"`
	Friction       float32 `json:"friction"`
	Restitution    float32 `json:"restitution"`
	CollisionShape string  `json:"collisionShape,omitempty"`
}

// Block is a published template.
type Block struct {
	ID         string      `json:"id"`
	Version    int         `json:"version"`
	Name       string      `json:"name"`
	Geometry   Geometry    `json:"geometry"`
	SnapPoints []SnapPoint `json:"snapPoints"`
	Metadata   Metadata    `json:"metadata"`
	Physics    *Physics    `json:"physics,omitempty"`
}

// SnapPoint looks up a snap point by id.
func (b *Block) SnapPoint(id string) (*SnapPoint, bool) {
	for i := range b.SnapPoints {
		if b.SnapPoints[i].ID == id {
			return &b.SnapPoints[i], true
		}
	}
	return nil, false
}

// Validate checks the structural rules of a template: a usable id, positive
// dimensions, a known unit, and snap points with unique ids and non-zero
// normals.
func (b *Block) Validate() error {
	if err := bferrors.ValidateID("block", b.ID); err != nil {
		return err
	}
	g := b.Geometry
	if g.Width <= 0 || g.Height <= 0 || g.Depth <= 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput,
			"block %q: dimensions must be positive (got %gx%gx%g)", b.ID, g.Width, g.Height, g.Depth)
	}
	if !g.Unit.Valid() {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "block %q: unknown unit %q", b.ID, g.Unit)
	}
	seen := make(map[string]bool, len(b.SnapPoints))
	for _, sp := range b.SnapPoints {
		if sp.ID == "" {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "block %q: snap point without id", b.ID)
		}
		if seen[sp.ID] {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "block %q: duplicate snap point id %q", b.ID, sp.ID)
		}
		seen[sp.ID] = true
		if sp.Normal.Length() == 0 {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "block %q: snap point %q has a zero normal", b.ID, sp.ID)
		}
		if c := sp.Constraints; c != nil && c.MaxConnections != nil && *c.MaxConnections < 0 {
			return bferrors.New(bferrors.ErrCodeInvalidInput, "block %q: snap point %q has negative maxConnections", b.ID, sp.ID)
		}
	}
	return nil
}

// LocalBounds returns the block's box in its own space.
func (b *Block) LocalBounds() math32.Box3 {
	g := b.Geometry
	half := math32.Vec3(g.Width/2, g.Height/2, g.Depth/2)
	return math32.Box3{Min: g.Origin.Sub(half), Max: g.Origin.Add(half)}
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	c := *b
	c.SnapPoints = make([]SnapPoint, len(b.SnapPoints))
	for i, sp := range b.SnapPoints {
		c.SnapPoints[i] = sp.clone()
	}
	c.Metadata.Tags = slices.Clone(b.Metadata.Tags)
	if b.Physics != nil {
		ph := *b.Physics
		c.Physics = &ph
	}
	return &c
}
