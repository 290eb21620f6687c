package main

import (
	"context"
	"net/http"
	"time"

	"github.com/crucial707/cashcard/internal/auth"
	"github.com/crucial707/cashcard/internal/config"
	"github.com/crucial707/cashcard/internal/handlers"
	"github.com/crucial707/cashcard/internal/middleware"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/crucial707/cashcard/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires the HTTP surface. dir resolves Basic credentials; the database
// backs cash cards and the audit log.
func newRouter(database *sqlx.DB, dir auth.Directory, cfg config.Config) http.Handler {
	ttl := time.Duration(cfg.JWTExpireHours) * time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	authn := auth.NewAuthenticator(dir)
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), ttl)
	auditRepo := repo.NewAuditRepo(database)

	cardHandler := &handlers.CashCardHandler{
		Repo:    repo.NewCashCardRepo(database),
		Audit:   auditRepo,
		BaseURL: cfg.PublicBaseURL,
	}
	tokenHandler := &handlers.TokenHandler{Issuer: tokens}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	// ==========================
	// Operational
	// ==========================
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// ==========================
	// Token exchange (any role)
	// ==========================
	r.With(
		middleware.TokenRateLimiter().Middleware,
		middleware.Authenticate(authn, tokens),
	).Post("/auth/token", tokenHandler.IssueToken)

	// ==========================
	// Card owners
	// ==========================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(authn, tokens))
		r.Use(middleware.RequireRole(models.RoleCardOwner))
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

		r.Route("/cashcards", func(r chi.Router) {
			r.Get("/", cardHandler.ListCashCards)
			r.Post("/", cardHandler.CreateCashCard)
			r.Get("/{id}", cardHandler.GetCashCard)
			r.Put("/{id}", cardHandler.UpdateCashCard)
			r.Delete("/{id}", cardHandler.DeleteCashCard)
		})
		r.Get("/audit", auditHandler.ListAudit)
	})

	return r
}
