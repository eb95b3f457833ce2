package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/dsa-drill/internal/middleware"
)

// LivenessBody is the fixed liveness reply.
const LivenessBody = "I am alive"

const defaultHealthCheckTimeout = 5 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness and health check endpoints.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler. A zero timeout uses 5s.
func NewHealthHandler(db Pinger, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, timeout: timeout, logger: logger}
}

// Liveness answers uptime pings. It never touches dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessBody))
}

// Health returns the status of the process and its database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "ok"}
	status := map[string]interface{}{"status": "healthy", "checks": checks}
	statusCode := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, status)
}

// NewRouter builds the HTTP surface: GET / for liveness and GET /health.
func NewRouter(h *HealthHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.GetHead)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.Liveness)
	r.Get("/health", h.Health)
	return r
}

// NewServer wraps the router in an http.Server listening on port.
func NewServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
