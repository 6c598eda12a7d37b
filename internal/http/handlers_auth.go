package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	identity, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "User signed up", "owner_id", identity.ID)
	writeJSON(w, http.StatusCreated, identityResponse{ID: identity.ID, Email: identity.Email})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	identity, token, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	// First sign-in seeds the default category set; the store-level
	// uniqueness constraint keeps concurrent sign-ins from duplicating it.
	if err := s.store.EnsureDefaultCategories(r.Context(), identity.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to ensure default categories",
			"owner_id", identity.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, struct {
		Token    string           `json:"token"`
		Identity identityResponse `json:"identity"`
	}{
		Token:    token,
		Identity: identityResponse{ID: identity.ID, Email: identity.Email},
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.SignOut(token)
	}
	w.WriteHeader(http.StatusNoContent)
}
