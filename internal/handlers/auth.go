package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/types"
)

// Registration is the account flow behind the auth endpoints.
type Registration interface {
	Signup(ctx context.Context, req services.SignupRequest) (types.User, error)
	ExchangeToken(ctx context.Context, req services.TokenRequest) (string, error)
}

// AuthHandler serves self-registration and token exchange.
type AuthHandler struct {
	registration Registration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(registration Registration) *AuthHandler {
	return &AuthHandler{registration: registration}
}

// AuthRouter registers auth routes on the given router. limit throttles
// both endpoints and may be nil.
func AuthRouter(r chi.Router, registration Registration, limit func(http.Handler) http.Handler) {
	handler := NewAuthHandler(registration)

	if limit != nil {
		r = r.With(limit)
	}
	r.Post("/signup", handler.Signup)
	r.Post("/token", handler.Token)
}

// Signup registers a user and mails the confirmation code.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.registration.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{Username: user.Username, Email: user.Email})
}

// Token exchanges a confirmation code for an access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req services.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.registration.ExchangeToken(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
