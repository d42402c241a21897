package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/mesophy/internal/config"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/auth/endpoints"
	adminapi "github.com/Nixie-Tech-LLC/mesophy/internal/http/api/admin/control/endpoints"
	systemapi "github.com/Nixie-Tech-LLC/mesophy/internal/http/api/system"
	clientapi "github.com/Nixie-Tech-LLC/mesophy/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
	"github.com/Nixie-Tech-LLC/mesophy/internal/redis"
	"github.com/Nixie-Tech-LLC/mesophy/internal/storage"
)

// Services is everything the routes hand to modules.
type Services struct {
	Store     db.Store
	Notifier  adminapi.Notifier
	Resolver  clientapi.ContentResolver
	Pairing   *redis.PairingStore
	Processor *storage.MediaProcessor
	Polling   *polling.Config
	Events    adminapi.CalendarEvents
	Refresher systemapi.CalendarRefresher
	Checks    map[string]systemapi.Pinger
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc Services) {
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(middleware.RequestLogger())

	r.GET("/metrics", systemapi.MetricsHandler())

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		authapi.AuthPublicModule(cfg.JWTSecret, cfg.JWTTTL, svc.Store),
		systemapi.HealthModule(svc.Checks),
		systemapi.CalendarModule(cfg.CronSecret, svc.Refresher),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
		Users:     svc.Store,
	},
		authapi.AuthSessionModule(cfg.JWTSecret, cfg.JWTTTL, svc.Store),
		adminapi.UserModule(svc.Store),
		adminapi.HierarchyModule(svc.Store),
		adminapi.ScreenModule(svc.Store, svc.Notifier, svc.Pairing),
		adminapi.MediaModule(svc.Store, svc.Notifier, svc.Processor, svc.Events),
		adminapi.PlaylistModule(svc.Store, svc.Notifier),
		adminapi.ScheduleModule(svc.Store, svc.Notifier),
		adminapi.PollingModule(svc.Store, svc.Polling),
	)

	// players
	limiter := middleware.NewIPRateLimiter(cfg.DeviceRateLimit, cfg.DeviceRateBurst)
	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api",
		Middleware: []gin.HandlerFunc{middleware.RateLimit(limiter)},
	},
		clientapi.ContentModule(svc.Store, svc.Resolver),
		clientapi.DeviceModule(svc.Store, svc.Pairing, svc.Polling, cfg.SiteURL),
	)

	// Static content
	if !cfg.UseSpaces {
		r.Static("/uploads", cfg.UploadDir)
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"ETag",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
