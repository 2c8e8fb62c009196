package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAgents lists the configured agent ids.
// GET /api/agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.ListAgents())
}

// DailyStats returns the day-bucketed rollup report.
// GET /api/reports/daily?days
func (h *Handler) DailyStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.service.DailyStats(ctx, intQuery(c, "days", 7))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Dashboard returns the rich aggregate report.
// GET /api/reports/dashboard?days&agentId&status
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := h.service.Dashboard(ctx, intQuery(c, "days", 30),
		c.QueryParam("agentId"), c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}
