package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

type ObjectPutter interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType, md5Hex string) error
}

// MirrorHandler copies completed artifacts to object storage under the
// upload key.
type MirrorHandler struct {
	store ObjectPutter
}

func NewMirrorHandler(store ObjectPutter) *MirrorHandler {
	return &MirrorHandler{store: store}
}

func (h *MirrorHandler) Name() string { return "s3-mirror" }

func (h *MirrorHandler) Handle(ctx context.Context, event entity.Event) error {
	if event.Type != entity.EventCompleted {
		return nil
	}
	if event.FinalPath == "" {
		return errors.New("completed event without artifact path")
	}

	f, err := os.Open(event.FinalPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// replaced or removed since completion; a retry cannot help
			slog.WarnContext(ctx, "artifact gone before mirroring", "upload_id", event.UploadID, "path", event.FinalPath)
			return nil
		}
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	key := ObjectKey(event)
	if err := h.store.PutObject(ctx, key, f, event.Size, event.FileType, event.MD5); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	slog.InfoContext(ctx, "artifact mirrored", "upload_id", event.UploadID, "key", key, "size", event.Size)
	return nil
}

// ObjectKey is "{upload key}/{filename}".
func ObjectKey(event entity.Event) string {
	return path.Join(event.Key, event.Filename)
}
