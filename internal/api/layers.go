package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/scene"
)

type layerView struct {
	*layer.Layer
	Depth            int  `json:"depth"`
	EffectiveVisible bool `json:"effectiveVisible"`
	EffectiveLocked  bool `json:"effectiveLocked"`
}

func viewLayer(p *scene.Project, l *layer.Layer) layerView {
	v := layerView{Layer: l, Depth: p.LayerDepth(l.ID)}
	v.EffectiveVisible, _ = p.LayerEffectiveVisible(l.ID)
	v.EffectiveLocked, _ = p.LayerEffectiveLocked(l.ID)
	return v
}

func (s *Server) listLayers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ls := s.p.Layers()
	out := make([]layerView, len(ls))
	for i, l := range ls {
		out[i] = viewLayer(s.p, l)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLayer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.p.Layer(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewLayer(s.p, l))
}

type createLayerRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

func (s *Server) createLayer(w http.ResponseWriter, r *http.Request) {
	var req createLayerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.p.CreateLayer(r.Context(), req.Name, req.Parent)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/layers/"+l.ID)
	writeJSON(w, http.StatusCreated, viewLayer(s.p, l))
}

type patchLayerRequest struct {
	Name    *string  `json:"name,omitempty"`
	Parent  *string  `json:"parent,omitempty"` // "" makes the layer a root
	Index   *int     `json:"index,omitempty"`
	Visible *bool    `json:"visible,omitempty"`
	Locked  *bool    `json:"locked,omitempty"`
	Opacity *float32 `json:"opacity,omitempty"`
}

// patchLayer applies the given fields in declaration order, each as its own
// command, stopping at the first failure.
func (s *Server) patchLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchLayerRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := r.Context()
	var steps []func() error
	if req.Name != nil {
		steps = append(steps, func() error { return s.p.RenameLayer(ctx, id, *req.Name) })
	}
	if req.Parent != nil {
		steps = append(steps, func() error { return s.p.MoveLayer(ctx, id, *req.Parent) })
	}
	if req.Index != nil {
		steps = append(steps, func() error { return s.p.ReorderLayer(ctx, id, *req.Index) })
	}
	if req.Visible != nil {
		steps = append(steps, func() error { return s.p.SetLayerVisible(ctx, id, *req.Visible) })
	}
	if req.Locked != nil {
		steps = append(steps, func() error { return s.p.SetLayerLocked(ctx, id, *req.Locked) })
	}
	if req.Opacity != nil {
		steps = append(steps, func() error { return s.p.SetLayerOpacity(ctx, id, *req.Opacity) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	l, err := s.p.Layer(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewLayer(s.p, l))
}

func (s *Server) deleteLayer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.p.DeleteLayer(r.Context(), chi.URLParam(r, "id"), flag(r, "cascade"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
