// Package assemble concatenates stored parts into the final artifact.
package assemble

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/multipart/partstore"
)

const stagingPattern = ".assemble-*"

// Parts is the slice of the part store the assembler reads from.
type Parts interface {
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}

// Source is one part in assembly order.
type Source struct {
	PartNumber int
	Path       string
	ETag       string
}

// Result describes the assembled artifact.
type Result struct {
	Path string
	Size int64
	MD5  string
}

type Assembler struct {
	parts Parts
}

func New(parts Parts) *Assembler {
	return &Assembler{parts: parts}
}

// Assemble streams sources, in order, into a staging file next to finalPath
// and renames it into place once every part has been copied and verified.
//
// A source is removed as soon as it has been copied. On any failure the
// staging file is discarded and finalPath is left untouched.
func (a *Assembler) Assemble(ctx context.Context, finalPath string, sources []Source) (Result, error) {
	if len(sources) == 0 {
		return Result{}, errors.New("assemble: no parts")
	}

	staging, err := os.CreateTemp(filepath.Dir(finalPath), stagingPattern)
	if err != nil {
		return Result{}, entity.StorageError(err)
	}
	stagingName := staging.Name()
	committed := false
	defer func() {
		if !committed {
			_ = staging.Close()
			_ = os.Remove(stagingName)
		}
	}()

	whole := partstore.NewHash()
	out := io.MultiWriter(staging, whole)

	var total int64
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		n, err := a.copyPart(out, src)
		if err != nil {
			return Result{}, err
		}
		total += n

		if err := a.parts.Remove(src.Path); err != nil {
			slog.WarnContext(ctx, "failed to remove assembled part", "path", src.Path, "error", err)
		}
	}

	if err := staging.Sync(); err != nil {
		return Result{}, entity.StorageError(err)
	}
	if err := staging.Close(); err != nil {
		return Result{}, entity.StorageError(err)
	}
	if err := os.Rename(stagingName, finalPath); err != nil {
		return Result{}, entity.StorageError(err)
	}
	committed = true

	return Result{
		Path: finalPath,
		Size: total,
		MD5:  hex.EncodeToString(whole.Sum(nil)),
	}, nil
}

func (a *Assembler) copyPart(out io.Writer, src Source) (int64, error) {
	rc, err := a.parts.Open(src.Path)
	if err != nil {
		if errors.Is(err, entity.ErrPartNotFound) {
			return 0, entity.VerificationError(src.PartNumber, "part missing from storage")
		}
		return 0, err
	}
	defer rc.Close()

	h := partstore.NewHash()
	n, err := io.Copy(io.MultiWriter(out, h), rc)
	if err != nil {
		return 0, entity.StorageError(fmt.Errorf("copy part %d: %w", src.PartNumber, err))
	}

	if src.ETag != "" && hex.EncodeToString(h.Sum(nil)) != src.ETag {
		return 0, entity.VerificationError(src.PartNumber, "stored bytes changed during assembly")
	}

	return n, nil
}
