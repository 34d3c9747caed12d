// Package httpapi is the thin echo routing layer over resolver/mutator/
// audit/health: it binds the Correlation-Id header, maps rcerrors.Kind to
// HTTP status, and carries no business logic of its own (spec §6).
package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/health"
	"routectl.dev/internal/logging"
	"routectl.dev/internal/mutator"
	"routectl.dev/internal/rcerrors"
	"routectl.dev/internal/resolver"
)

// Config controls server construction, mirroring the knobs the corpus's
// generic echo server helper exposes.
type Config struct {
	Debug           bool
	BodyLimit       string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sane production defaults.
func DefaultConfig() Config {
	return Config{
		BodyLimit:      "1M",
		AllowedOrigins: []string{"*"},
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
	}
}

// Server wires the boundary operations onto an echo router.
type Server struct {
	echo     *echo.Echo
	resolver *resolver.Resolver
	mutator  *mutator.Mutator
	audit    audit.Store
	health   *health.Checker
	logger   *logging.ContextLogger
}

// New constructs a Server with every route registered.
func New(cfg Config, res *resolver.Resolver, mut *mutator.Mutator, auditStore audit.Store, checker *health.Checker, logger *logging.ContextLogger) *Server {
	if logger == nil {
		logger = logging.ServiceLogger("routectl", "dev")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}

	s := &Server{echo: e, resolver: res, mutator: mut, audit: auditStore, health: checker, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.Use(s.correlationMiddleware)

	s.echo.GET("/routes/:tenant/:service/:env/:version", s.handleResolve)
	s.echo.POST("/routes", s.handleCreate)
	s.echo.POST("/routes/:tenant/:service/:env/:version/activate", s.handleActivate)
	s.echo.POST("/routes/:tenant/:service/:env/:version/deactivate", s.handleDeactivate)
	s.echo.GET("/audit", s.handleAuditQuery)
	s.echo.GET("/readiness", s.handleReadiness)
	s.echo.GET("/liveness", s.handleLiveness)
}

// Echo exposes the underlying router for cmd/routectl to start/shutdown.
func (s *Server) Echo() *echo.Echo { return s.echo }

// errorResponse is the standard JSON error body (spec §6).
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func statusForKind(kind rcerrors.Kind) int {
	switch kind {
	case rcerrors.KindNotFound:
		return http.StatusNotFound
	case rcerrors.KindValidation:
		return http.StatusBadRequest
	case rcerrors.KindConflict:
		return http.StatusConflict
	case rcerrors.KindCircuitOpen, rcerrors.KindBulkheadFull, rcerrors.KindDraining,
		rcerrors.KindRetryBudgetExceeded, rcerrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c echo.Context, err error) error {
	status := statusForKind(rcerrors.Classify(err))
	return c.JSON(status, errorResponse{
		Error:         err.Error(),
		CorrelationID: c.Response().Header().Get(CorrelationIDHeader),
	})
}

// errorHandler handles errors echo itself raises (routing, binding) before a
// handler ever runs.
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}
	if !c.Response().Committed {
		_ = c.JSON(code, errorResponse{Error: message})
	}
}
