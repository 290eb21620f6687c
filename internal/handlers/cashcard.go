package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/cashcard/internal/metrics"
	"github.com/crucial707/cashcard/internal/middleware"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/crucial707/cashcard/internal/paging"
	"github.com/crucial707/cashcard/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CashCardStore is the record store behind CashCardHandler. Every method is
// scoped to owner and reports misses as repo.ErrNotFound.
type CashCardStore interface {
	Create(ctx context.Context, owner string, amount decimal.Decimal) (models.CashCard, error)
	GetByIDAndOwner(ctx context.Context, id int64, owner string) (models.CashCard, error)
	ListByOwner(ctx context.Context, owner string, page paging.PageRequest) ([]models.CashCard, error)
	CountByOwner(ctx context.Context, owner string) (int64, error)
	UpdateAmount(ctx context.Context, id int64, owner string, amount decimal.Decimal) error
	Delete(ctx context.Context, id int64, owner string) error
}

// AuditLogger records successful mutations.
type AuditLogger interface {
	Log(ctx context.Context, owner, action string, cardID int64) error
}

// defaultSort is applied to List when the request names no sort.
var defaultSort = paging.Order{Field: "amount", Direction: paging.Asc}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(models.CashCardInput)
		if in.Amount != nil && !models.ValidAmount(*in.Amount) {
			sl.ReportError(in.Amount, "Amount", "amount", "cashamount", "")
		}
	}, models.CashCardInput{})
	return v
}

// ==========================
// CashCard Handler
// ==========================

// CashCardHandler serves /cashcards. It expects middleware.Authenticate and
// RequireRole(CARD-OWNER) in front of it. Errors are answered with an empty body.
type CashCardHandler struct {
	Repo CashCardStore
	// Audit is optional.
	Audit AuditLogger
	// BaseURL prefixes Location headers. When empty the request's scheme and host are used.
	BaseURL string
}

// ==========================
// Create
// ==========================

func (h *CashCardHandler) CreateCashCard(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	amount, status := decodeAmount(r)
	if status != 0 {
		metrics.IncCashCardOp("create", metrics.OutcomeBadRequest)
		writeStatus(w, status)
		return
	}

	card, err := h.Repo.Create(r.Context(), owner, amount)
	if err != nil {
		h.storeError(w, r, "create", err)
		return
	}
	h.audit(r, owner, models.AuditCreate, card.ID)
	metrics.IncCashCardOp("create", metrics.OutcomeOK)

	w.Header().Set("Location", h.baseURL(r)+"/cashcards/"+strconv.FormatInt(card.ID, 10))
	writeStatus(w, http.StatusCreated)
}

// ==========================
// List
// ==========================

// ListCashCards returns one page of the caller's cards as a JSON array and the
// caller's total card count in X-Total-Count.
func (h *CashCardHandler) ListCashCards(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	page, err := paging.Parse(r.URL.Query(), repo.SortFields, defaultSort)
	if err != nil {
		metrics.IncCashCardOp("list", metrics.OutcomeBadRequest)
		writeStatus(w, http.StatusBadRequest)
		return
	}

	cards, err := h.Repo.ListByOwner(r.Context(), owner, page)
	if err != nil {
		h.storeError(w, r, "list", err)
		return
	}
	total, err := h.Repo.CountByOwner(r.Context(), owner)
	if err != nil {
		h.storeError(w, r, "list", err)
		return
	}
	if cards == nil {
		cards = []models.CashCard{}
	}
	metrics.IncCashCardOp("list", metrics.OutcomeOK)

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, cards)
}

// ==========================
// Get
// ==========================

func (h *CashCardHandler) GetCashCard(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}
	id, ok := cardID(r)
	if !ok {
		metrics.IncCashCardOp("get", metrics.OutcomeNotFound)
		writeStatus(w, http.StatusNotFound)
		return
	}

	card, err := h.Repo.GetByIDAndOwner(r.Context(), id, owner)
	if err != nil {
		h.storeError(w, r, "get", err)
		return
	}
	metrics.IncCashCardOp("get", metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, card)
}

// ==========================
// Update
// ==========================

// UpdateCashCard replaces the amount of an existing card. It never creates one.
func (h *CashCardHandler) UpdateCashCard(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}
	id, ok := cardID(r)
	if !ok {
		metrics.IncCashCardOp("update", metrics.OutcomeNotFound)
		writeStatus(w, http.StatusNotFound)
		return
	}

	amount, status := decodeAmount(r)
	if status != 0 {
		metrics.IncCashCardOp("update", metrics.OutcomeBadRequest)
		writeStatus(w, status)
		return
	}

	if err := h.Repo.UpdateAmount(r.Context(), id, owner, amount); err != nil {
		h.storeError(w, r, "update", err)
		return
	}
	h.audit(r, owner, models.AuditUpdate, id)
	metrics.IncCashCardOp("update", metrics.OutcomeOK)
	writeStatus(w, http.StatusNoContent)
}

// ==========================
// Delete
// ==========================

func (h *CashCardHandler) DeleteCashCard(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.GetOwner(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}
	id, ok := cardID(r)
	if !ok {
		metrics.IncCashCardOp("delete", metrics.OutcomeNotFound)
		writeStatus(w, http.StatusNotFound)
		return
	}

	if err := h.Repo.Delete(r.Context(), id, owner); err != nil {
		h.storeError(w, r, "delete", err)
		return
	}
	h.audit(r, owner, models.AuditDelete, id)
	metrics.IncCashCardOp("delete", metrics.OutcomeOK)
	writeStatus(w, http.StatusNoContent)
}

// ==========================
// Helpers
// ==========================

// cardID parses the {id} URL param. A malformed id cannot name a card, so callers answer 404.
func cardID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeAmount reads a CashCardInput body. A non-zero status means the body was rejected.
func decodeAmount(r *http.Request) (decimal.Decimal, int) {
	var input models.CashCardInput
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&input); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return decimal.Decimal{}, http.StatusRequestEntityTooLarge
		}
		return decimal.Decimal{}, http.StatusBadRequest
	}
	if _, err := dec.Token(); err != io.EOF {
		return decimal.Decimal{}, http.StatusBadRequest
	}
	if err := validate.Struct(input); err != nil {
		return decimal.Decimal{}, http.StatusBadRequest
	}
	return *input.Amount, 0
}

func (h *CashCardHandler) baseURL(r *http.Request) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	switch proto := strings.ToLower(strings.TrimSpace(first)); proto {
	case "http", "https":
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func (h *CashCardHandler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		metrics.IncCashCardOp(op, metrics.OutcomeNotFound)
		writeStatus(w, http.StatusNotFound)
		return
	}
	if errors.Is(err, paging.ErrInvalidSort) {
		metrics.IncCashCardOp(op, metrics.OutcomeBadRequest)
		writeStatus(w, http.StatusBadRequest)
		return
	}
	slog.ErrorContext(r.Context(), "cash card store",
		"request_id", chimw.GetReqID(r.Context()),
		"operation", op,
		"error", err)
	metrics.IncCashCardOp(op, metrics.OutcomeError)
	writeStatus(w, http.StatusInternalServerError)
}

// audit failures are logged and never fail the request.
func (h *CashCardHandler) audit(r *http.Request, owner, action string, id int64) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Log(r.Context(), owner, action, id); err != nil {
		slog.WarnContext(r.Context(), "audit log write failed",
			"request_id", chimw.GetReqID(r.Context()),
			"action", action,
			"card_id", id,
			"error", err)
	}
}
