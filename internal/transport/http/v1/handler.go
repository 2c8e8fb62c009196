// Package v1 provides the HTTP API for the agent monitor.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/agentmon/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the API routes, both at the root and under the
// reverse-proxy base path.
func (h *Handler) RegisterRoutes(e *echo.Echo, basePath string) {
	h.register(e.Group(""))
	if basePath != "" && basePath != "/" {
		h.register(e.Group(basePath))
	}
	e.GET("/health", h.Health)
}

func (h *Handler) register(g *echo.Group) {
	g.GET("/api/agents", h.ListAgents)
	g.GET("/api/runs", h.ListRuns)
	g.GET("/api/runs/:run_id", h.GetRunDetail)
	g.GET("/api/reports/daily", h.DailyStats)
	g.GET("/api/reports/dashboard", h.Dashboard)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func intQuery(c echo.Context, name string, defaultVal int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return val
}
