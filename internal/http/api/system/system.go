// Package system serves the operational endpoints: health, metrics and the
// scheduled calendar token refresh.
package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/calendar"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
)

// Pinger is anything health can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type CalendarRefresher interface {
	RefreshExpiring(ctx context.Context) (calendar.RefreshResult, error)
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

type RefreshResponse struct {
	Success bool `json:"success"`
	calendar.RefreshResult
}

type SystemController struct {
	checks   map[string]Pinger
	calendar CalendarRefresher
}

// HealthModule mounts GET /health. Every check must pass for a 200.
func HealthModule(checks map[string]Pinger) api.Module {
	ctl := &SystemController{checks: checks}
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/health", ctl.health)
	})
}

// CalendarModule mounts the cron hook guarded by the shared secret. A nil
// refresher answers 503.
func CalendarModule(secret string, refresher CalendarRefresher) api.Module {
	ctl := &SystemController{calendar: refresher}
	return api.ModuleFunc(func(c *api.Controller) {
		c.With(middleware.SharedSecret(secret)).PUBLIC_POST("/calendar/refresh-tokens", ctl.refreshTokens)
	})
}

// MetricsHandler exposes the default prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// GET /api/health
func (s *SystemController) health(ctx *gin.Context) (any, *api.APIError) {
	probeCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Checks:    make(map[string]string, len(s.checks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for name, p := range s.checks {
		if err := p.Ping(probeCtx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("health check failed")
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "up"
	}
	if resp.Status != "ok" {
		return api.Response{Status: http.StatusServiceUnavailable, Body: resp}, nil
	}
	return resp, nil
}

// POST /api/calendar/refresh-tokens
func (s *SystemController) refreshTokens(ctx *gin.Context) (any, *api.APIError) {
	if s.calendar == nil {
		return nil, api.Unavailable("calendar integration is not configured")
	}
	res, err := s.calendar.RefreshExpiring(ctx.Request.Context())
	if err != nil {
		return nil, api.Internal(err)
	}
	return RefreshResponse{Success: true, RefreshResult: res}, nil
}
