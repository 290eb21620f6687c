package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/crucial707/cashcard/internal/middleware"
	"github.com/crucial707/cashcard/internal/models"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// AuditLister reads audit entries for one owner.
type AuditLister interface {
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]models.AuditEntry, error)
}

// AuditHandler serves the caller's own audit trail.
type AuditHandler struct {
	Repo AuditLister
}

// ListAudit returns the caller's audit entries, newest first. Query: limit (default 50, max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 200 {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}

	entries, err := h.Repo.ListByOwner(r.Context(), owner, limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "audit store",
			"request_id", chimw.GetReqID(r.Context()),
			"owner", owner,
			"error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
