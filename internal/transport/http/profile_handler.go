package http

import (
	"net/http"

	"kwikly/internal/app"

	"github.com/go-chi/chi/v5"
)

type profileHandler struct {
	profiles *app.ProfileService
}

func (h *profileHandler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Profile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *profileHandler) update(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := h.profiles.Update(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *profileHandler) results(w http.ResponseWriter, r *http.Request) {
	results, err := h.profiles.Results(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *profileHandler) setXP(w http.ResponseWriter, r *http.Request) {
	var req app.SetXPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := h.profiles.SetXP(r.Context(), roleFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
