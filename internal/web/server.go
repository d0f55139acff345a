// Package web provides the HTTP API over the param CSV engine.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/paramcsv/internal/config"
	"github.com/JonMunkholm/paramcsv/internal/core"
	mw "github.com/JonMunkholm/paramcsv/internal/web/middleware"
)

// Server is the HTTP server for the param CSV engine.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiters    []*mw.RateLimiter
	importLimit func(http.Handler) http.Handler
	stopJobs    context.CancelFunc
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Rate limiting: a general budget per IP, and a smaller one for imports
	s.importLimit = func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		general := mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		imports := mw.NewRateLimiter(s.cfg.Rate.ImportLimit, time.Minute)
		s.limiters = append(s.limiters, general, imports)
		s.router.Use(general.Middleware)
		s.importLimit = imports.Middleware
	}

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(mw.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Table listing
		r.Get("/tables", s.handleListTables)

		r.Route("/tables/{table}", func(r chi.Router) {
			// Export
			r.Get("/labels", s.handleLabels)
			r.Get("/csv", s.handleExport)

			// Import (staged until committed)
			r.With(s.importLimit).Post("/csv", s.handleImport)
			r.With(s.importLimit).Post("/csv/{field}", s.handleImportField)

			// History
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
		})

		// Staged imports
		r.Get("/pending", s.handleListPending)
		r.Post("/pending/{id}/commit", s.handleCommit)
		r.Delete("/pending/{id}", s.handleDiscard)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.stopJobs = cancel
	for _, l := range s.limiters {
		go l.Cleanup(jobCtx)
	}

	slog.Info("server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopJobs != nil {
		s.stopJobs()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				// Fragments are plain markup; nothing is loaded from elsewhere
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeText writes a CSV or header payload.
func writeText(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("write response", "error", err)
	}
}
