package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listConnections(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := s.p.AllConnections()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getConnection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, err := s.p.Connection(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type patchConnectionRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) patchConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req patchConnectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.p.LockConnection(r.Context(), id, req.Locked); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.p.Connection(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) breakConnection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.p.BreakConnection(r.Context(), chi.URLParam(r, "id"), flag(r, "force"))
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
