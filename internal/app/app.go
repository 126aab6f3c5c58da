package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkglog"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	goroutine *pkgroutine.Manager

	// resources
	metrics *prometheus.Registry

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	// closed in reverse order of registration
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds the application. An empty configPath falls back to
// /config/config.yaml, or ./config/config.yaml when LOCAL=true.
func New(configPath string) *App {
	pkglog.InitLogging()

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:        ctx,
		cancel:     cancel,
		configPath: configPath,
	}

	app.initConfig()
	app.initTelemetry()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
