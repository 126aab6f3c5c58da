// Package tts turns reply text into WAV audio.
package tts

import (
	"context"
	"errors"
)

var ErrEmptyText = errors.New("tts: text is empty")

// Synthesizer renders text as a complete WAV file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
