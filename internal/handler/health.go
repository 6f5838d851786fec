package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/deppfellow/bookshelf/internal/config"
	"github.com/deppfellow/bookshelf/internal/middleware"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/labstack/echo/v4"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthHandler reports whether the service and its dependencies are
// reachable.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// HealthResponse is the /status body. Status is healthy, degraded (an
// optional dependency failed) or unhealthy (the database failed).
type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]CheckResult `json:"checks"`
}

// CheckHealth probes the configured dependencies. A failing database
// answers 503. A failing Redis only degrades the status, since books are
// still served without the cache.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := HealthResponse{
		Status:      statusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      map[string]CheckResult{},
	}

	obs := h.server.Config.Observability
	if obs == nil {
		obs = config.DefaultObservabilityConfig()
	}
	hc := obs.HealthChecks
	if !hc.Enabled {
		return c.JSON(http.StatusOK, response)
	}

	if slices.Contains(hc.Checks, "database") {
		result := h.probe(c.Request().Context(), hc.Timeout, h.server.DB.Ping)
		response.Checks["database"] = result

		if result.Status != statusHealthy {
			response.Status = statusUnhealthy
			logger.Error().Str("error", result.Error).Msg("database health check failed")
			h.recordFailure("database", result)
		}
	}

	if slices.Contains(hc.Checks, "redis") && h.server.Redis != nil {
		result := h.probe(c.Request().Context(), hc.Timeout, func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
		response.Checks["redis"] = result

		if result.Status != statusHealthy {
			if response.Status == statusHealthy {
				response.Status = statusDegraded
			}
			logger.Warn().Str("error", result.Error).Msg("redis health check failed")
			h.recordFailure("redis", result)
		}
	}

	logger.Debug().
		Str("status", response.Status).
		Dur("total_duration", time.Since(start)).
		Msg("health check finished")

	if response.Status == statusUnhealthy {
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) probe(parent context.Context, timeout time.Duration, ping func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	if err := ping(ctx); err != nil {
		return CheckResult{
			Status:       statusUnhealthy,
			ResponseTime: time.Since(start).String(),
			Error:        err.Error(),
		}
	}

	return CheckResult{
		Status:       statusHealthy,
		ResponseTime: time.Since(start).String(),
	}
}

func (h *HealthHandler) recordFailure(check string, result CheckResult) {
	app := h.server.LoggerService.GetApplication()
	if app == nil {
		return
	}

	app.RecordCustomEvent("HealthCheckError", map[string]any{
		"check_type":    check,
		"operation":     "health_check",
		"error_type":    check + "_unhealthy",
		"response_time": result.ResponseTime,
		"error_message": result.Error,
	})
}
