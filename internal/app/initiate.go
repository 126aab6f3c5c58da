package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkglog"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgtrace"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

func (a *App) initConfig() {
	path := a.configPath
	if path == "" {
		path = "/config/config.yaml"
	}

	if os.Getenv("LOCAL") == "true" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load .env file", "error", err)
		}
		if a.configPath == "" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := pkgconfig.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("tz"))

	a.config = cfg
}

func (a *App) initTelemetry() {
	shutdown, err := pkgtrace.Init(a.ctx, pkglog.ServiceName, a.config.GetString("telemetry.otlp_endpoint"))
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	a.addCloser("Tracer", shutdown)
}

func (a *App) initLibraries() {
	a.goroutine = pkgroutine.NewManager(100)
	a.uuid = pkguid.NewUUID()

	a.metrics = prometheus.NewRegistry()
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	a.router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	a.router.Use(
		pkgrouter.NewHTTPMetrics(a.metrics, "gomultipart").Middleware,
		pkgrouter.MiddlewareRateLimit(int(a.config.GetInt("ratelimit.requests_per_minute")), time.Minute),
	)

	origins := a.config.GetArray("cors.allowed_origins")
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   pkgrouter.ExposedHeaders(),
		AllowCredentials: true,
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           pkgtrace.Handler(corsHandler.Handler(a.router), "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) initClosers() {
	a.addCloser("HTTP Server", func(ctx context.Context) error {
		return a.httpServer.Shutdown(ctx)
	})
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	a.closers = append(a.closers, closer{name: name, fn: fn})
}
