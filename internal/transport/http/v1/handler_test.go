package v1

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/agentmon/internal/config"
	"github.com/xiaot623/agentmon/internal/service"
	"github.com/xiaot623/agentmon/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *config.Config) {
	cfg := &config.Config{
		OpenclawDir:  t.TempDir(),
		Port:         8787,
		DatabasePath: ":memory:",
	}
	db := helpers.NewTestSQLiteStore(t)
	return NewHandler(service.New(db, cfg)), cfg
}

func seedRuns(t *testing.T, cfg *config.Config, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cfg.RunsFile()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cfg.RunsFile(), []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Health(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRoutesServedUnderBasePath(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)
	h.RegisterRoutes(e, "/agentmon")

	for _, path := range []string{"/api/agents", "/agentmon/api/agents"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
