// Package http provides the HTTP server implementation for the agent
// monitor.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/agentmon/internal/service"
	v1 "github.com/xiaot623/agentmon/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. Routes are registered
// both at the root and under basePath for reverse-proxy deployments.
func NewServer(svc *service.Service, basePath string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register Routes
	handler := v1.NewHandler(svc)
	handler.RegisterRoutes(e, basePath)

	return e
}
