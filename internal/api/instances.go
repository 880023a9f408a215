package api

import (
	"net/http"

	"cogentcore.org/core/math32"
	"github.com/go-chi/chi/v5"

	"github.com/blockforge/blockforge/pkg/scene"
	"github.com/blockforge/blockforge/pkg/transform"
)

type vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func toVector(v math32.Vector3) vector { return vector{v.X, v.Y, v.Z} }

// transformBody is the request form of a transform: Euler rotation in
// degrees, scale defaulting to 1.
type transformBody struct {
	Position [3]float32  `json:"position"`
	Rotation [3]float32  `json:"rotation"`
	Scale    *[3]float32 `json:"scale,omitempty"`
}

// transform builds the placement; the scene rejects invalid scales.
func (b *transformBody) transform() *transform.Transform {
	scale := math32.Vec3(1, 1, 1)
	if b.Scale != nil {
		scale = math32.Vec3(b.Scale[0], b.Scale[1], b.Scale[2])
	}
	return transform.New(
		math32.Vec3(b.Position[0], b.Position[1], b.Position[2]),
		transform.EulerDegrees(b.Rotation[0], b.Rotation[1], b.Rotation[2]),
		scale,
	)
}

type boundsView struct {
	Min vector `json:"min"`
	Max vector `json:"max"`
}

type snapPointView struct {
	ID       string `json:"id"`
	Position vector `json:"position"`
	Normal   vector `json:"normal"`
	Enabled  bool   `json:"enabled"`
}

type instanceView struct {
	*scene.Instance
	WorldBounds      boundsView      `json:"worldBounds"`
	SnapPoints       []snapPointView `json:"snapPoints"`
	EffectiveVisible bool            `json:"effectiveVisible"`
	EffectiveLocked  bool            `json:"effectiveLocked"`
}

func viewInstance(p *scene.Project, id string) (*instanceView, error) {
	inst, err := p.Instance(id)
	if err != nil {
		return nil, err
	}
	box, err := p.WorldBounds(id)
	if err != nil {
		return nil, err
	}
	sps, err := p.WorldSnapPoints(id)
	if err != nil {
		return nil, err
	}
	v := &instanceView{
		Instance:    inst,
		WorldBounds: boundsView{Min: toVector(box.Min), Max: toVector(box.Max)},
		SnapPoints:  make([]snapPointView, len(sps)),
	}
	for i, sp := range sps {
		v.SnapPoints[i] = snapPointView{
			ID:       sp.SnapPointID,
			Position: toVector(sp.Position),
			Normal:   toVector(sp.Normal),
			Enabled:  sp.Enabled,
		}
	}
	v.EffectiveVisible, _ = p.EffectiveVisible(id)
	v.EffectiveLocked, _ = p.EffectiveLocked(id)
	return v, nil
}

func (s *Server) listInstances(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := s.p.Instances()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	v, err := viewInstance(s.p, chi.URLParam(r, "id"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type placeRequest struct {
	BlockID   string         `json:"blockId"`
	Transform *transformBody `json:"transform,omitempty"`
	LayerID   string         `json:"layerId,omitempty"`
}

func (s *Server) placeInstance(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var t *transform.Transform
	if req.Transform != nil {
		t = req.Transform.transform()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.p.PlaceInstance(r.Context(), req.BlockID, t, req.LayerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := viewInstance(s.p, inst.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/instances/"+inst.ID)
	writeJSON(w, http.StatusCreated, v)
}

type patchInstanceRequest struct {
	Transform *transformBody `json:"transform,omitempty"`
	LayerID   *string        `json:"layerId,omitempty"`
	Visible   *bool          `json:"visible,omitempty"`
	Locked    *bool          `json:"locked,omitempty"`
	Selected  *bool          `json:"selected,omitempty"`
}

// patchInstance applies the given fields in declaration order, each as its
// own command. A failing field stops the patch; earlier fields stay applied.
func (s *Server) patchInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchInstanceRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var t *transform.Transform
	if req.Transform != nil {
		t = req.Transform.transform()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := r.Context()
	var steps []func() error
	if t != nil {
		steps = append(steps, func() error {
			_, err := s.p.MoveInstance(ctx, id, t, flag(r, "force"))
			return err
		})
	}
	if req.LayerID != nil {
		steps = append(steps, func() error { return s.p.AssignInstance(ctx, id, *req.LayerID) })
	}
	if req.Visible != nil {
		steps = append(steps, func() error { return s.p.SetInstanceVisible(ctx, id, *req.Visible) })
	}
	if req.Locked != nil {
		steps = append(steps, func() error { return s.p.SetInstanceLocked(ctx, id, *req.Locked) })
	}
	if req.Selected != nil {
		steps = append(steps, func() error { return s.p.Select(id, *req.Selected) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	v, err := viewInstance(s.p, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) deleteInstance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.p.DeleteInstance(r.Context(), chi.URLParam(r, "id"), flag(r, "force"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
