package http

import (
	"encoding/json"
	"net/http"

	"finanzas/internal/auth"
	"finanzas/internal/core"
)

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	cats, err := s.store.LoadCategories(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	c, err := s.store.AddCategory(r.Context(), identity.ID, req.Name, core.Kind(req.Kind))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	name := r.PathValue("name")
	reassignTo := r.URL.Query().Get("reassign_to")
	if err := s.store.DeleteCategory(r.Context(), identity.ID, name, reassignTo); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
