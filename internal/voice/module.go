package voice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
	"github.com/shandysiswandi/gomultipart/internal/voice/inbound"
	"github.com/shandysiswandi/gomultipart/internal/voice/phrase"
	"github.com/shandysiswandi/gomultipart/internal/voice/tts"
)

type Dependency struct {
	Config  pkgconfig.Config
	Router  *pkgrouter.Router
	Metrics prometheus.Registerer
}

func New(dep Dependency) (func(context.Context) error, error) {
	ids, err := pkguid.NewSnowflake()
	if err != nil {
		return nil, fmt.Errorf("init voice session ids: %w", err)
	}

	synth, err := newSynthesizer(dep.Config.GetString("voice.synthesizer"), ids)
	if err != nil {
		return nil, err
	}

	end := inbound.NewVoiceEndpoint(inbound.Dependency{
		Picker:      phrase.NewPicker(),
		Synthesizer: synth,
		Sessions:    ids,
		Metrics:     dep.Metrics,
		Config: inbound.Config{
			AllowedOrigins: dep.Config.GetArray("cors.allowed_origins"),
		},
	})
	inbound.RegisterWebsocketEndpoint(dep.Router, end)

	return nil, nil
}

func newSynthesizer(kind string, ids pkguid.NumberID) (inbound.Synthesizer, error) {
	switch kind {
	case "", "tone":
		return tts.NewToneSynthesizer(), nil
	case "say":
		if !tts.Available() {
			slog.Warn("say/afconvert not found, falling back to tone synthesizer")
			return tts.NewToneSynthesizer(), nil
		}
		return tts.NewCommandSynthesizer("", ids)
	default:
		return nil, fmt.Errorf("unknown voice.synthesizer %q", kind)
	}
}
