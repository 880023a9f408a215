package snap

import (
	"cogentcore.org/core/math32"

	"github.com/blockforge/blockforge/pkg/block"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/transform"
)

// Constraint rule names carried by CONSTRAINT_VIOLATION errors.
const (
	RuleDisabled          = "disabled"
	RuleAllowedBlockTypes = "allowed_block_types"
	RuleAllowedCategories = "allowed_categories"
	RuleMaxConnections    = "max_connections"
	RuleRotationLocked    = "rotation_locked"
)

type side struct {
	ep    Endpoint
	sp    *block.SnapPoint
	block *block.Block
	t     *transform.Transform
}

// check applies the constraint rules to a geometrically eligible pair. The
// first failing rule is returned.
func (e *Engine) check(a, b side, occ Occupancy, pending map[Endpoint]int) error {
	if a.sp == nil || b.sp == nil {
		return bferrors.Internal("snap point missing on %s or %s", a.ep, b.ep)
	}
	for _, s := range [2]side{a, b} {
		if !s.sp.Enabled {
			return bferrors.Constraint(RuleDisabled, "snap point %s is disabled", s.ep)
		}
	}
	for _, pr := range [2][2]side{{a, b}, {b, a}} {
		self, partner := pr[0], pr[1]
		typeOK, catOK := self.sp.Constraints.Accepts(partner.block)
		if !typeOK {
			return bferrors.Constraint(RuleAllowedBlockTypes,
				"snap point %s does not accept block %s (%s)", self.ep, partner.block.ID, partner.block.Geometry.Type)
		}
		if !catOK {
			return bferrors.Constraint(RuleAllowedCategories,
				"snap point %s does not accept category %q", self.ep, partner.block.Metadata.Category)
		}
	}
	for _, s := range [2]side{a, b} {
		limit := s.sp.MaxConnectionsOr(e.opts.DefaultMaxConnections)
		if occ.Count(s.ep)+pending[s.ep] >= limit {
			return bferrors.Constraint(RuleMaxConnections,
				"snap point %s already has %d of %d connections", s.ep, occ.Count(s.ep)+pending[s.ep], limit)
		}
	}
	for _, s := range [2]side{a, b} {
		c := s.sp.Constraints
		if c == nil || !c.RotationLocked {
			continue
		}
		step := c.RotationStep
		if step <= 0 {
			step = e.opts.RotationStep
		}
		if off, ok := alignedRotation(a.t, b.t, step, e.opts.RotationTolerance); !ok {
			return bferrors.Constraint(RuleRotationLocked,
				"snap point %s requires rotation in %g° steps, off by %.2f°", s.ep, step, off)
		}
	}
	return nil
}

// alignedRotation reports whether the rotation taking a to b is a multiple
// of step degrees about every Euler axis, within tol degrees. off is the
// largest deviation found.
func alignedRotation(a, b *transform.Transform, step, tol float32) (off float32, ok bool) {
	qa, qb := a.Quat(), b.Quat()
	inv := qa.Inverse()
	rel := inv.Mul(qb)
	euler := rel.ToEuler()
	for _, rad := range [3]float32{euler.X, euler.Y, euler.Z} {
		dev := math32.Abs(math32.Remainder(math32.RadToDeg(rad), step))
		off = max(off, dev)
	}
	return off, off <= tol
}
