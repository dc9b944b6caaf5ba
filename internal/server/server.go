package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/geoscope-ai/geoscope/config"
	"github.com/geoscope-ai/geoscope/internal/analyzer"
	"github.com/geoscope-ai/geoscope/internal/audit"
	"github.com/geoscope-ai/geoscope/internal/recorder"
	"github.com/geoscope-ai/geoscope/internal/runtime"
	"github.com/geoscope-ai/geoscope/internal/telemetry"
)

// Run wires the dependencies and serves the API on cfg.Server.Listen.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.NewMetrics()
	}

	remote, err := analyzer.NewRemoteAnalyzer(cfg.Analyzer)
	if err != nil {
		return err
	}
	cached := analyzer.NewCachedAnalyzer(remote, cfg.Analyzer.CacheTTL)

	// Recorder is optional: without Postgres, results live only in session
	// snapshots.
	var rec audit.ResultRecorder = recorder.Noop{}
	if dsn, derr := cfg.Databases.Postgres.DSN(); derr == nil {
		pg, perr := recorder.NewPostgres(ctx, dsn)
		if perr != nil {
			return fmt.Errorf("postgres connection failed: %w", perr)
		}
		rec = pg
	} else {
		baseLogger.Printf("recorder disabled: %v", derr)
	}

	storeLogger := log.New(log.Writer(), "[STORE] ", log.LstdFlags)
	store := audit.NewSessionStore(cfg.Audit.SessionTTL, storeLogger)
	store.StartSweeper(ctx, cfg.Audit.SweepInterval)

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := audit.NewOrchestrator(cfg.Audit, remote, store, rec, orchLogger, metrics)

	api := e.Group("/api")
	if cfg.Server.JWTSecret != "" {
		secret, serr := runtime.LoadJWTSecret(cfg)
		if serr != nil {
			return serr
		}
		api.Use(runtime.EchoAuthMiddleware(secret))
	}

	NewAuditsHandler(orch).Register(api)
	NewAnalyzeHandler(cached, cfg.Audit.SinglePageTimeout).Register(api)

	if cfg.Scheduler.Enabled && len(cfg.Scheduler.Entries) > 0 {
		var rdb *redis.Client
		if cfg.Databases.Redis.Addr != "" {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Databases.Redis.Addr,
				Password: cfg.Databases.Redis.Password,
				DB:       cfg.Databases.Redis.DB,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis connection failed (%s): %w", cfg.Databases.Redis.Addr, err)
			}
		}
		sched := &Scheduler{Entries: cfg.Scheduler.Entries, Orch: orch, Rdb: rdb}
		sched.Start(ctx)
	}

	if addr == "" {
		addr = cfg.Server.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10020"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
