package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

// Runner executes an external program.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// CommandSynthesizer drives the macOS speech tools: say renders AIFF and
// afconvert turns it into 44.1 kHz mono PCM16 WAV.
type CommandSynthesizer struct {
	dir string
	ids pkguid.NumberID
	run Runner
}

func NewCommandSynthesizer(dir string, ids pkguid.NumberID) (*CommandSynthesizer, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "audio-output")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("tts: create temp dir: %w", err)
	}

	return &CommandSynthesizer{dir: dir, ids: ids, run: execRunner}, nil
}

// Available reports whether both tools are on PATH.
func Available() bool {
	for _, bin := range []string{"say", "afconvert"} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}

func (s *CommandSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	name := "speech_" + strconv.FormatInt(s.ids.Generate(), 10)
	aiff := filepath.Join(s.dir, name+".aiff")
	wav := filepath.Join(s.dir, name+".wav")
	defer func() {
		for _, p := range []string{aiff, wav} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.WarnContext(ctx, "failed to remove tts temp file", "path", p, "error", err)
			}
		}
	}()

	// text is passed as a single argument, never through a shell
	if err := s.run(ctx, "say", "-o", aiff, "--", text); err != nil {
		return nil, fmt.Errorf("tts: say: %w", err)
	}
	if err := s.run(ctx, "afconvert", aiff, wav, "-f", "WAVE", "-d", "LEI16@44100", "-c", "1"); err != nil {
		return nil, fmt.Errorf("tts: afconvert: %w", err)
	}

	data, err := os.ReadFile(wav) //nolint:gosec // path built from our own temp dir
	if err != nil {
		return nil, fmt.Errorf("tts: read output: %w", err)
	}

	return data, nil
}
