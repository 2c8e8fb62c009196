package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/agentmon/internal/domain"
)

// ListRuns returns the paginated run history.
// GET /api/runs?limit&offset&agentId&status
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := intQuery(c, "limit", 200)
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	page, err := h.service.ListRuns(ctx, domain.RunsQuery{
		Limit:   limit,
		Offset:  offset,
		AgentID: c.QueryParam("agentId"),
		Status:  c.QueryParam("status"),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, page)
}

// GetRunDetail returns a single run with transcript excerpts.
// GET /api/runs/:run_id
func (h *Handler) GetRunDetail(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	detail, err := h.service.GetRunDetail(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if detail == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, detail)
}
