// Package geom computes world-space geometry for placed blocks: enclosing
// boxes and snap-point positions.
//
// Every function is pure. The same block and transform always produce
// bit-identical output, which connection derivation and undo/redo replay
// rely on. Values stay in the block's declared unit; use [block.Convert] at
// the boundary to mix units.
package geom

import (
	"cogentcore.org/core/math32"

	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/transform"
)

// WorldSnapPoint is a snap point mapped to world space.
type WorldSnapPoint struct {
	SnapPointID string
	Position    math32.Vector3
	Normal      math32.Vector3
	Enabled     bool
}

// WorldBounds returns the minimum axis-aligned box enclosing the block after
// scale, rotation and translation.
func WorldBounds(b *block.Block, t *transform.Transform) math32.Box3 {
	return t.Bounds(b.LocalBounds())
}

// WorldSnapPoints maps every snap point of b through t, in block order.
// Positions take the full transform; normals are rotated only and
// re-normalized.
func WorldSnapPoints(b *block.Block, t *transform.Transform) []WorldSnapPoint {
	out := make([]WorldSnapPoint, len(b.SnapPoints))
	for i, sp := range b.SnapPoints {
		out[i] = WorldSnapPoint{
			SnapPointID: sp.ID,
			Position:    t.Apply(sp.Position),
			Normal:      t.Rotate(sp.Normal.Normal()),
			Enabled:     sp.Enabled,
		}
	}
	return out
}

// WorldSnapPointByID maps the snap point with the given id to world space.
func WorldSnapPointByID(b *block.Block, t *transform.Transform, id string) (WorldSnapPoint, bool) {
	sp, ok := b.SnapPoint(id)
	if !ok {
		return WorldSnapPoint{}, false
	}
	return WorldSnapPoint{
		SnapPointID: sp.ID,
		Position:    t.Apply(sp.Position),
		Normal:      t.Rotate(sp.Normal.Normal()),
		Enabled:     sp.Enabled,
	}, true
}

// Expand returns b grown by d on every axis.
func Expand(b math32.Box3, d float32) math32.Box3 {
	b.ExpandByScalar(d)
	return b
}

// Overlaps reports whether two boxes intersect or touch.
func Overlaps(a, b math32.Box3) bool {
	return a.IntersectsBox(b)
}

// Within reports whether b lies within distance d of a on every axis, the
// broad-phase test of the snap candidate search.
func Within(a, b math32.Box3, d float32) bool {
	return Overlaps(Expand(a, d), b)
}

// Facing reports whether two unit normals are anti-parallel within
// tolerance: their dot product is at most maxDot (for example -0.95).
func Facing(n1, n2 math32.Vector3, maxDot float32) bool {
	return n1.Dot(n2) <= maxDot
}
