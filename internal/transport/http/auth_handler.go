package http

import (
	"net/http"

	"kwikly/internal/app"
)

type authHandler struct {
	auth *app.AuthService
}

func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req app.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	setTokenCookie(w, resp.Token)
	respondJSON(w, http.StatusCreated, resp)
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	setTokenCookie(w, resp.Token)
	respondJSON(w, http.StatusOK, resp)
}

// setTokenCookie mirrors the token into the cookie jwtauth.TokenFromCookie reads.
func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
