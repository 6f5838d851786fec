package router

import (
	"github.com/deppfellow/bookshelf/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers routes outside the versioned API: health,
// the docs UI and the static assets it loads.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.HEAD("/status", h.Health.CheckHealth)

	r.Static("/static", handler.StaticDir)

	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
