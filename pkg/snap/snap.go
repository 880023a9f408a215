// Package snap resolves connections between placed blocks.
//
// Given a moving instance and the instances around it, [Engine.Resolve]
// finds which of the moving instance's snap points touch a facing snap point
// on a neighbor, picks one partner per moving snap point, and checks the
// constraint rules of both sides. The result is a list of proposals in the
// moving block's snap-point order; the caller turns them into connection
// records.
//
// # Algorithm
//
//  1. Map the moving block's snap points to world space.
//  2. Broad phase: keep candidates whose world box lies within SnapDistance
//     of the moving box on every axis.
//  3. Pairing: a (moving, candidate) snap pair is eligible when the points
//     are at most SnapDistance apart and their normals face each other
//     (dot product at most NormalTolerance).
//  4. Tie-break: per moving snap point, the eligible pair with the smallest
//     distance wins; ties go to the lowest candidate instance id, then the
//     lowest snap-point id.
//  5. Constraints: disabled points, allowed block types and categories,
//     connection caps and rotation locks are checked on both sides. A pair
//     that fails still becomes a proposal, marked invalid, with a
//     CONSTRAINT_VIOLATION error naming the rule.
//
// Step 2 and 3 run in parallel across candidates. The merged result is sorted
// before the tie-break, so the output is identical to a sequential run.
//
// Which candidates are considered (layer visibility and lock) is decided by
// the caller.
package snap

import (
	"cmp"
	"context"
	"slices"
	"time"

	"cogentcore.org/core/math32"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/blockforge/blockforge/pkg/block"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/geom"
	"github.com/blockforge/blockforge/pkg/observability"
	"github.com/blockforge/blockforge/pkg/transform"
)

// Candidate is a placed block taking part in resolution.
type Candidate struct {
	InstanceID string
	Block      *block.Block
	Transform  *transform.Transform
}

// Endpoint names one side of a connection.
type Endpoint struct {
	InstanceID  string `json:"instanceId"`
	SnapPointID string `json:"snapPointId"`
}

func (e Endpoint) String() string { return e.InstanceID + "/" + e.SnapPointID }

// Compare orders endpoints by instance id, then snap-point id.
func (e Endpoint) Compare(o Endpoint) int {
	if c := cmp.Compare(e.InstanceID, o.InstanceID); c != 0 {
		return c
	}
	return cmp.Compare(e.SnapPointID, o.SnapPointID)
}

// Proposal is a resolved snap pair. Source is on the moving instance.
type Proposal struct {
	Source   Endpoint
	Target   Endpoint
	Distance float32
	Valid    bool
	Err      error // set when !Valid
}

// Rule returns the failed constraint rule, or "" for valid proposals.
func (p Proposal) Rule() string { return bferrors.GetRule(p.Err) }

// Occupancy reports how many valid connections an endpoint already holds
// outside the current resolution pass.
type Occupancy interface {
	Count(Endpoint) int
}

// Counts is a map-backed Occupancy.
type Counts map[Endpoint]int

// Count implements Occupancy.
func (c Counts) Count(e Endpoint) int { return c[e] }

// Engine resolves snap connections. It holds no per-scene state and is safe
// for concurrent use.
type Engine struct {
	opts   Options
	logger *log.Logger
}

// NewEngine creates an engine. A nil logger uses log.Default().
func NewEngine(opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{opts: opts.WithDefaults(), logger: logger}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

type pair struct {
	moving   int // index into the moving block's snap points
	target   Endpoint
	cand     int // index into others
	distance float32
}

// Resolve runs snap resolution for moving against others. Candidates with
// the moving instance's id are ignored. occ may be nil.
func (e *Engine) Resolve(ctx context.Context, moving Candidate, others []Candidate, occ Occupancy) ([]Proposal, error) {
	if moving.Block == nil || moving.Transform == nil {
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "moving instance %q has no block or transform", moving.InstanceID)
	}
	if occ == nil {
		occ = Counts(nil)
	}
	start := time.Now()

	mt := moving.Transform.Clone()
	movingPts := geom.WorldSnapPoints(moving.Block, mt)
	movingBox := geom.WorldBounds(moving.Block, mt)

	pairs, considered, err := e.search(ctx, moving.InstanceID, movingPts, movingBox, others)
	if err != nil {
		return nil, err
	}

	best := make([]*pair, len(movingPts))
	for i := range pairs {
		p := &pairs[i]
		if best[p.moving] == nil {
			best[p.moving] = p
		}
	}

	pending := make(map[Endpoint]int)
	var out []Proposal
	var valid, invalid int
	for mi, p := range best {
		if p == nil {
			continue
		}
		src := Endpoint{InstanceID: moving.InstanceID, SnapPointID: movingPts[mi].SnapPointID}
		msp, _ := moving.Block.SnapPoint(src.SnapPointID)
		other := others[p.cand]
		tsp, _ := other.Block.SnapPoint(p.target.SnapPointID)

		prop := Proposal{Source: src, Target: p.target, Distance: p.distance}
		prop.Err = e.check(
			side{ep: src, sp: msp, block: moving.Block, t: mt},
			side{ep: p.target, sp: tsp, block: other.Block, t: other.Transform},
			occ, pending,
		)
		prop.Valid = prop.Err == nil
		if prop.Valid {
			pending[src]++
			pending[p.target]++
			valid++
		} else {
			invalid++
			e.logger.Debug("snap constraint failed",
				"source", src, "target", p.target, "rule", prop.Rule())
		}
		out = append(out, prop)
	}

	elapsed := time.Since(start)
	e.logger.Debug("snap resolved",
		"instance", moving.InstanceID,
		"candidates", considered,
		"valid", valid,
		"invalid", invalid,
		"duration", elapsed)
	observability.Snap().OnResolve(ctx, considered, valid, invalid, elapsed)
	return out, nil
}

// search runs the broad phase and pairing for every candidate in parallel
// and returns the eligible pairs sorted for the tie-break, along with the
// number of candidates that passed the broad phase.
func (e *Engine) search(ctx context.Context, movingID string, movingPts []geom.WorldSnapPoint, movingBox math32.Box3, others []Candidate) ([]pair, int, error) {
	results := make([][]pair, len(others))
	hit := make([]bool, len(others))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, c := range others {
		if c.InstanceID == movingID || c.Block == nil || c.Transform == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], hit[i] = e.pairsWith(i, c, movingPts, movingBox)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var all []pair
	considered := 0
	for i := range results {
		if hit[i] {
			considered++
		}
		all = append(all, results[i]...)
	}
	slices.SortFunc(all, func(a, b pair) int {
		if a.moving != b.moving {
			return a.moving - b.moving
		}
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return a.target.Compare(b.target)
	})
	return all, considered, nil
}

// pairsWith works on a private copy of the candidate transform, since
// reading bounds fills the transform's cache.
func (e *Engine) pairsWith(idx int, c Candidate, movingPts []geom.WorldSnapPoint, movingBox math32.Box3) ([]pair, bool) {
	t := c.Transform.Clone()
	if !geom.Within(movingBox, geom.WorldBounds(c.Block, t), e.opts.SnapDistance) {
		return nil, false
	}
	pts := geom.WorldSnapPoints(c.Block, t)

	var out []pair
	for mi, mp := range movingPts {
		for _, cp := range pts {
			d := mp.Position.DistanceTo(cp.Position)
			if d > e.opts.SnapDistance || !geom.Facing(mp.Normal, cp.Normal, e.opts.NormalTolerance) {
				continue
			}
			out = append(out, pair{
				moving:   mi,
				target:   Endpoint{InstanceID: c.InstanceID, SnapPointID: cp.SnapPointID},
				cand:     idx,
				distance: d,
			})
		}
	}
	return out, true
}

// StillAttached reports whether an existing connection between two snap
// points would still pass the geometric gate: distance within SnapDistance
// and facing normals. Locked connections use it to decide whether a move
// stretches them.
func (e *Engine) StillAttached(a, b Candidate, aSnap, bSnap string) bool {
	pa, ok := geom.WorldSnapPointByID(a.Block, a.Transform.Clone(), aSnap)
	if !ok {
		return false
	}
	pb, ok := geom.WorldSnapPointByID(b.Block, b.Transform.Clone(), bSnap)
	if !ok {
		return false
	}
	return pa.Position.DistanceTo(pb.Position) <= e.opts.SnapDistance &&
		geom.Facing(pa.Normal, pb.Normal, e.opts.NormalTolerance)
}
