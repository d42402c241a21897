package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/mesophy/internal/calendar"
	"github.com/Nixie-Tech-LLC/mesophy/internal/config"
	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/api"
	systemapi "github.com/Nixie-Tech-LLC/mesophy/internal/http/api/system"
	"github.com/Nixie-Tech-LLC/mesophy/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/mesophy/internal/notify"
	"github.com/Nixie-Tech-LLC/mesophy/internal/polling"
	"github.com/Nixie-Tech-LLC/mesophy/internal/redis"
	"github.com/Nixie-Tech-LLC/mesophy/internal/schedule"
	"github.com/Nixie-Tech-LLC/mesophy/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := bootstrap()
		if err != nil {
			return err
		}
		defer closer.Close()
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer db.DB.Close()
	if cfg.AutoMigrate {
		if err := db.RunMigrations(db.DB, cfg.MigrationsPath); err != nil {
			return err
		}
	}
	store := db.NewStore(db.DB)

	rdb := redis.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	defer rdb.Close()

	// notifications are stored first and then fanned out
	publishers := []notify.Publisher{notify.NewStreamPublisher(rdb, cfg.NotificationStream)}
	if cfg.MQTTBrokerURL != "" {
		mqttPub, err := notify.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBrokerURL).Msg("MQTT push disabled")
		} else {
			defer mqttPub.Close()
			publishers = append(publishers, mqttPub)
		}
	}
	dispatcher := notify.NewDispatcher(store, publishers...)
	defer dispatcher.Wait()

	resolver, err := schedule.NewResolver(store, nil)
	if err != nil {
		return err
	}
	pollingConfig, err := polling.Load(cfg.PollingConfigFile)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(schedule.ReferenceZone)
	if err != nil {
		return err
	}
	calendarService := calendar.NewService(
		store,
		calendar.NewMicrosoftRefresher(cfg.CalendarClientID, cfg.CalendarClientSecret, cfg.CalendarTenant),
		calendar.NewGraphClient(cfg.GraphBaseURL),
		loc,
	)
	var refresher systemapi.CalendarRefresher
	if cfg.CalendarConfigured() {
		refresher = calendarService
	} else {
		log.Info().Msg("calendar token refresh is not configured")
	}

	if err := middleware.RegisterValidators(); err != nil {
		return err
	}
	api.SetExposeDetails(!cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, cfg, Services{
		Store:     store,
		Notifier:  dispatcher,
		Resolver:  resolver,
		Pairing:   redis.NewPairingStore(rdb),
		Processor: storage.NewMediaProcessor(InitStorage(cfg), cfg.MaxUploadBytes()),
		Polling:   pollingConfig,
		Events:    calendarService,
		Refresher: refresher,
		Checks: map[string]systemapi.Pinger{
			"database": systemapi.PingFunc(func(context.Context) error { return store.Ping() }),
			"redis":    systemapi.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ServerAddress).Str("env", cfg.AppEnv).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
