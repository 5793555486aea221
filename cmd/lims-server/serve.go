package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/dashboard"
	"github.com/lims/lims/internal/domain/emr"
	"github.com/lims/lims/internal/domain/identity"
	"github.com/lims/lims/internal/domain/inventory"
	"github.com/lims/lims/internal/domain/nabl"
	"github.com/lims/lims/internal/domain/patient"
	"github.com/lims/lims/internal/domain/qc"
	"github.com/lims/lims/internal/domain/result"
	"github.com/lims/lims/internal/domain/specimen"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/middleware"
	"github.com/lims/lims/internal/platform/websocket"
)

const version = "0.1.0"

// breachRefreshInterval is how often the TAT breach gauge is recomputed
// between dashboard requests.
const breachRefreshInterval = time.Minute

func runServer() error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer a.Close()
	logger.Info().Str("id_allocator", cfg.IDAllocator).Str("audit_mode", cfg.AuditMode).
		Bool("strict_transitions", cfg.StrictTransitions).Bool("archive", cfg.ArchiveEnabled()).
		Msg("connected to database")

	e := newEcho(a)

	go refreshBreaches(ctx, a.dashboard, logger, breachRefreshInterval)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newEcho(a *app) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Metrics(a.metrics))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/ws", "/api/audit-logs/export"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(a.jwt))
	} else {
		e.Use(auth.JWTMiddleware(a.jwt))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	var checks []db.Check
	if a.redis != nil {
		checks = append(checks, db.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	e.GET("/health/db", db.HealthHandler(a.pool, checks...))
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))
	websocket.NewHandler(a.hub, cfg.CORSOrigins).RegisterRoutes(e)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api", middleware.RateLimit(rateLimitCfg))

	identity.NewHandler(a.identity).RegisterRoutes(api)
	patient.NewHandler(a.patients).RegisterRoutes(api)
	catalog.NewHandler(a.catalog).RegisterRoutes(api)
	specimen.NewHandler(a.specimens).RegisterRoutes(api)
	result.NewHandler(a.results).RegisterRoutes(api)
	qc.NewHandler(a.qc).RegisterRoutes(api)
	inventory.NewHandler(a.inventory).RegisterRoutes(api)
	nabl.NewHandler(a.nabl).RegisterRoutes(api)
	dashboard.NewHandler(a.dashboard).RegisterRoutes(api)
	audit.NewHandler(a.audit).RegisterRoutes(api)
	emr.NewHandler(a.emr).RegisterRoutes(api)

	return e
}

type statsSource interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
}

// refreshBreaches keeps lims_tat_breaches current until ctx is done.
func refreshBreaches(ctx context.Context, src statsSource, logger zerolog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := src.Stats(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("refresh tat breach gauge")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
