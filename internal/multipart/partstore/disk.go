// Package partstore persists upload parts on the local filesystem.
//
// Each part lives at {dir}/{uploadID}-part{n}. Bytes are written to a temp
// file in the same directory and renamed into place, so a reader never sees a
// half-written part and a repeated upload of the same number replaces the
// previous bytes atomically.
package partstore

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is the etag format clients expect, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

const tempPattern = ".part-*"

//nolint:gochecknoglobals // compiled once
var validUploadID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Disk stores parts under a single directory.
type Disk struct {
	dir     string
	maxPart int64
	now     func() time.Time
}

// NewDisk creates dir when missing. maxPart caps the size of a single part;
// zero means unlimited.
func NewDisk(dir string, maxPart int64) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("partstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("partstore: create dir: %w", err)
	}

	return &Disk{dir: dir, maxPart: maxPart, now: time.Now}, nil
}

// Dir returns the directory parts are stored in.
func (d *Disk) Dir() string {
	return d.dir
}

// Path returns the deterministic location of a part.
func (d *Disk) Path(uploadID string, partNumber int) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-part%d", uploadID, partNumber))
}

// Store streams r into the part location and returns its record.
//
// Errors reading r are returned as-is (wrapped) so callers can tell a broken
// client body from a storage failure, which is reported as entity.ErrStorage.
func (d *Disk) Store(ctx context.Context, uploadID string, partNumber int, r io.Reader) (entity.Part, error) {
	if !validUploadID.MatchString(uploadID) {
		return entity.Part{}, entity.UnknownUploadError(uploadID)
	}
	if partNumber < 1 {
		return entity.Part{}, fmt.Errorf("partstore: invalid part number %d", partNumber)
	}

	tmp, err := os.CreateTemp(d.dir, tempPattern)
	if err != nil {
		return entity.Part{}, entity.StorageError(err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	src := &bodyReader{ctx: ctx, r: r}
	var limited io.Reader = src
	if d.maxPart > 0 {
		limited = io.LimitReader(src, d.maxPart+1)
	}

	h := md5.New() //nolint:gosec // etag
	n, err := io.Copy(io.MultiWriter(tmp, h), limited)
	if err != nil {
		if src.err != nil {
			return entity.Part{}, fmt.Errorf("read part body: %w", src.err)
		}
		return entity.Part{}, entity.StorageError(err)
	}
	if d.maxPart > 0 && n > d.maxPart {
		return entity.Part{}, entity.PartTooLargeError(d.maxPart)
	}

	if err := tmp.Sync(); err != nil {
		return entity.Part{}, entity.StorageError(err)
	}
	if err := tmp.Close(); err != nil {
		return entity.Part{}, entity.StorageError(err)
	}

	path := d.Path(uploadID, partNumber)
	if err := os.Rename(tmpName, path); err != nil {
		return entity.Part{}, entity.StorageError(err)
	}
	committed = true

	return entity.Part{
		PartNumber: partNumber,
		ETag:       hex.EncodeToString(h.Sum(nil)),
		Size:       n,
		Path:       path,
		UploadedAt: d.now(),
	}, nil
}

// Open returns a reader over the stored part.
func (d *Disk) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the registry
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entity.PartNotFoundError(path)
		}
		return nil, entity.StorageError(err)
	}
	return f, nil
}

// Read loads the whole part into memory. Prefer Open for large parts.
func (d *Disk) Read(path string) ([]byte, error) {
	rc, err := d.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, entity.StorageError(err)
	}
	return data, nil
}

// Hash recomputes the etag and size of the stored bytes.
func (d *Disk) Hash(ctx context.Context, path string) (string, int64, error) {
	rc, err := d.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	h := md5.New() //nolint:gosec // etag
	n, err := io.Copy(h, &bodyReader{ctx: ctx, r: rc})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		return "", 0, entity.StorageError(err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Remove deletes a part. Removing a missing part is not an error.
func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return entity.StorageError(err)
	}
	return nil
}

// NewHash returns the hash used for etags.
func NewHash() hash.Hash {
	return md5.New() //nolint:gosec // etag
}

// bodyReader stops on context cancellation and remembers read failures.
type bodyReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	if err := b.ctx.Err(); err != nil {
		b.err = err
		return 0, err
	}
	n, err := b.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		b.err = err
	}
	return n, err
}
