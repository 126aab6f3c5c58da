package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gomultipart/internal/multipart"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
	"github.com/shandysiswandi/gomultipart/internal/voice"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.multipart.enabled") {
		closer, err := multipart.New(multipart.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        pkguid.NewRandomUUID(),
			Metrics:   a.metrics,
		})
		if err != nil {
			slog.Error("failed to init module multipart", "error", err)
			os.Exit(1)
		}
		a.addCloser("Multipart", closer)
	}

	if a.config.GetBool("modules.voice.enabled") {
		closer, err := voice.New(voice.Dependency{
			Config:  a.config,
			Router:  a.router,
			Metrics: a.metrics,
		})
		if err != nil {
			slog.Error("failed to init module voice", "error", err)
			os.Exit(1)
		}
		a.addCloser("Voice", closer)
	}
}
