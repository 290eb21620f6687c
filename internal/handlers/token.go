package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/middleware"
)

// ==========================
// Token Handler
// ==========================

// TokenHandler exchanges Basic credentials for a bearer token. It runs behind
// middleware.Authenticate, so any authenticated user gets a token regardless of role.
type TokenHandler struct {
	Issuer *auth.TokenIssuer
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token, exp, err := h.Issuer.Issue(u)
	if err != nil {
		slog.ErrorContext(r.Context(), "issue token", "username", u.Username, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp.UTC()})
}
