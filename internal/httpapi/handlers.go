package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"routectl.dev/internal/audit"
	"routectl.dev/internal/domain"
)

func routeFromParams(c echo.Context) domain.RouteIdentifier {
	return domain.RouteIdentifier{
		Tenant:  c.Param("tenant"),
		Service: c.Param("service"),
		Env:     c.Param("env"),
		Version: c.Param("version"),
	}
}

type resolveResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleResolve(c echo.Context) error {
	route := routeFromParams(c)
	url, err := s.resolver.Resolve(c.Request().Context(), route)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resolveResponse{URL: url})
}

type createRequest struct {
	Tenant  string `json:"tenant"`
	Service string `json:"service"`
	Env     string `json:"env"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

type mutationResponse struct {
	Outcome string `json:"outcome"`
	Tenant  string `json:"tenant"`
	Service string `json:"service"`
	Env     string `json:"env"`
	Version string `json:"version"`
	URL     string `json:"url"`
	Active  bool   `json:"active"`
}

func endpointResponse(outcome string, route domain.RouteIdentifier, ep domain.Endpoint) mutationResponse {
	return mutationResponse{
		Outcome: outcome,
		Tenant:  route.Tenant,
		Service: route.Service,
		Env:     route.Env,
		Version: route.Version,
		URL:     ep.URL,
		Active:  ep.IsActive,
	}
}

func (s *Server) handleCreate(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	route := domain.RouteIdentifier{Tenant: req.Tenant, Service: req.Service, Env: req.Env, Version: req.Version}

	outcome, ep, err := s.mutator.Create(c.Request().Context(), route, req.URL)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, endpointResponse(outcome.String(), route, ep))
}

func (s *Server) handleActivate(c echo.Context) error {
	route := routeFromParams(c)
	outcome, ep, err := s.mutator.Activate(c.Request().Context(), route)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, endpointResponse(outcome.String(), route, ep))
}

func (s *Server) handleDeactivate(c echo.Context) error {
	route := routeFromParams(c)
	outcome, ep, err := s.mutator.Deactivate(c.Request().Context(), route)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, endpointResponse(outcome.String(), route, ep))
}

func (s *Server) handleAuditQuery(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	var from, to time.Time
	if raw := c.QueryParam("from"); raw != "" {
		from, _ = time.Parse(time.RFC3339, raw)
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, _ = time.Parse(time.RFC3339, raw)
	}

	q := audit.Query{
		Tenant:  c.QueryParam("tenant"),
		Service: c.QueryParam("service"),
		Env:     c.QueryParam("env"),
		Version: c.QueryParam("version"),
		Action:  domain.Action(c.QueryParam("action")),
		From:    from,
		To:      to,
		Limit:   limit,
	}

	docs, err := s.audit.Query(c.Request().Context(), q)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleReadiness(c echo.Context) error {
	r := s.health.CheckReadiness()
	status := http.StatusOK
	if !r.Ready {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, r)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, s.health.CheckLiveness())
}
