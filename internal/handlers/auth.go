package handlers

import (
	"net/http"

	"github.com/abrezinsky/chanceraffle/internal/auth"
)

// handleLogin exchanges admin credentials for a token, returned in the body
// and set as a cookie
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	token, exp, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}

	auth.SetSessionCookie(w, token, exp)
	respondOK(w, LoginResponse{Token: token, ExpiresAt: exp})
}

// handleLogout revokes the caller's token and clears the cookie
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(auth.TokenFromRequest(r))
	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
