package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/gomultipart/internal/multipart/assemble"
	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgsign"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

type Registry interface {
	Create(ctx context.Context, upload entity.Upload) error
	Get(ctx context.Context, uploadID string) (entity.Upload, error)
	RecordPart(ctx context.Context, uploadID string, part entity.Part) error
	MarkCompleted(ctx context.Context, uploadID string, done entity.Upload, at time.Time) error
	MarkFailed(ctx context.Context, uploadID, reason string, at time.Time) error
	Delete(ctx context.Context, uploadID string) error
	List(ctx context.Context) []entity.Upload
}

type PartStore interface {
	Store(ctx context.Context, uploadID string, partNumber int, r io.Reader) (entity.Part, error)
	Hash(ctx context.Context, path string) (string, int64, error)
	Remove(path string) error
}

type Assembler interface {
	Assemble(ctx context.Context, finalPath string, sources []assemble.Source) (assemble.Result, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event) error
}

type Signer interface {
	Enabled() bool
	Sign(expires time.Time, fields ...string) string
	Verify(now time.Time, expiresUnix int64, sig string, fields ...string) error
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Registry  Registry
	Parts     PartStore
	Assembler Assembler
	Events    EventPublisher
	Signer    Signer
	Clock     Clock
	ID        pkguid.StringID
	EventID   pkguid.StringID
	Config    Config
}

// Usecase coordinates the multipart upload lifecycle.
//
// Each upload has a gate: part uploads hold it shared, so parts of one upload
// are written in parallel, while completion, abort and expiry hold it
// exclusively, so none of them interleaves with an in-flight part.
type Usecase struct {
	registry  Registry
	parts     PartStore
	assembler Assembler
	events    EventPublisher
	signer    Signer
	clock     Clock
	id        pkguid.StringID
	eventID   pkguid.StringID
	cfg       Config

	gates     *keyedLocks
	partLocks *keyedLocks
	tracer    trace.Tracer
}

func New(dep Dependency) *Usecase {
	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	signer := dep.Signer
	if signer == nil {
		signer = pkgsign.NewSigner(nil)
	}

	eventID := dep.EventID
	if eventID == nil {
		eventID = pkguid.NewUUID()
	}

	cfg := dep.Config
	if cfg.PublicPrefix == "" {
		cfg.PublicPrefix = "/uploads"
	}
	cfg.PublicPrefix = strings.TrimRight(cfg.PublicPrefix, "/")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 15 * time.Minute
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if cfg.VerifyConcurrency < 1 {
		cfg.VerifyConcurrency = 4
	}

	return &Usecase{
		registry:  dep.Registry,
		parts:     dep.Parts,
		assembler: dep.Assembler,
		events:    dep.Events,
		signer:    signer,
		clock:     clock,
		id:        dep.ID,
		eventID:   eventID,
		cfg:       cfg,
		gates:     newKeyedLocks(),
		partLocks: newKeyedLocks(),
		tracer:    otel.Tracer("github.com/shandysiswandi/gomultipart/internal/multipart/usecase"),
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Initialize registers a new in-progress upload.
func (u *Usecase) Initialize(ctx context.Context, in InitializeInput) (res InitializeResult, err error) {
	ctx, span := u.tracer.Start(ctx, "multipart.Initialize")
	defer func() { endSpan(span, err) }()

	if u.registry == nil || u.id == nil {
		return InitializeResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	filename, err := sanitizeFilename(in.Filename)
	if err != nil {
		return InitializeResult{}, err
	}

	uploadID := u.id.Generate()
	now := u.clock.Now()
	key := buildKey(uploadID, in.InterviewID, in.CandidateID)

	metadata := maps.Clone(in.Metadata)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	if in.InterviewID != "" {
		metadata["interview_id"] = in.InterviewID
	}
	if in.CandidateID != "" {
		metadata["candidate_id"] = in.CandidateID
	}

	if err := u.registry.Create(ctx, entity.Upload{
		ID:           uploadID,
		Filename:     filename,
		FileType:     in.FileType,
		Key:          key,
		Metadata:     metadata,
		Parts:        make(map[int]entity.Part),
		Status:       entity.StatusInProgress,
		StartTime:    now,
		LastActivity: now,
	}); err != nil {
		return InitializeResult{}, normalizeErr(err)
	}

	span.SetAttributes(attribute.String("upload.id", uploadID))
	slog.InfoContext(ctx, "upload initialized", "upload_id", uploadID, "filename", filename, "key", key)

	u.publish(ctx, entity.Event{
		Type:     entity.EventInitialized,
		UploadID: uploadID,
		Key:      key,
		Filename: filename,
		FileType: in.FileType,
	})

	return InitializeResult{UploadID: uploadID, Key: key}, nil
}

// RequestPartTarget returns where the client should PUT the given part.
func (u *Usecase) RequestPartTarget(ctx context.Context, uploadID string, partNumber int) (PartTarget, error) {
	if err := validatePartNumber(partNumber); err != nil {
		return PartTarget{}, err
	}

	rec, err := u.registry.Get(ctx, uploadID)
	if err != nil {
		return PartTarget{}, mapStoreErr(err, uploadID)
	}
	if rec.Status != entity.StatusInProgress {
		return PartTarget{}, entity.InvalidStateError(uploadID, rec.Status)
	}

	target := PartTarget{
		UploadID:   uploadID,
		PartNumber: partNumber,
		URL:        fmt.Sprintf("%s/api/upload-part/%s/%d", u.cfg.BaseURL, url.PathEscape(uploadID), partNumber),
	}

	if u.signer.Enabled() {
		target.ExpiresAt = u.clock.Now().Add(u.cfg.URLTTL).Truncate(time.Second)
		q := url.Values{}
		q.Set("expires", strconv.FormatInt(target.ExpiresAt.Unix(), 10))
		q.Set("signature", u.signer.Sign(target.ExpiresAt, uploadID, strconv.Itoa(partNumber)))
		target.URL += "?" + q.Encode()
	}

	return target, nil
}

// AcceptPart stores the bytes of one part and records its etag.
func (u *Usecase) AcceptPart(ctx context.Context, in AcceptPartInput) (part entity.Part, err error) {
	ctx, span := u.tracer.Start(ctx, "multipart.AcceptPart", trace.WithAttributes(
		attribute.String("upload.id", in.UploadID),
		attribute.Int("upload.part_number", in.PartNumber),
	))
	defer func() { endSpan(span, err) }()

	if err := validatePartNumber(in.PartNumber); err != nil {
		return entity.Part{}, err
	}
	if in.Body == nil {
		return entity.Part{}, pkgerror.NewInvalidInput(errors.New("part body is required"))
	}

	release := u.gates.RLock(in.UploadID)
	defer release()

	rec, err := u.registry.Get(ctx, in.UploadID)
	if err != nil {
		return entity.Part{}, mapStoreErr(err, in.UploadID)
	}
	if err := u.signer.Verify(u.clock.Now(), in.Expires, in.Signature, in.UploadID, strconv.Itoa(in.PartNumber)); err != nil {
		return entity.Part{}, entity.InvalidTargetError(err)
	}
	if rec.Status != entity.StatusInProgress {
		return entity.Part{}, entity.InvalidStateError(in.UploadID, rec.Status)
	}

	unlockPart := u.partLocks.Lock(in.UploadID + "/" + strconv.Itoa(in.PartNumber))
	defer unlockPart()

	part, err = u.parts.Store(ctx, in.UploadID, in.PartNumber, in.Body)
	if err != nil {
		return entity.Part{}, mapBodyErr(err)
	}
	part.UploadedAt = u.clock.Now()

	if err := u.registry.RecordPart(ctx, in.UploadID, part); err != nil {
		if rmErr := u.parts.Remove(part.Path); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove orphan part", "path", part.Path, "error", rmErr)
		}
		return entity.Part{}, mapStoreErr(err, in.UploadID)
	}

	u.publish(ctx, entity.Event{
		Type:       entity.EventPartAccepted,
		UploadID:   in.UploadID,
		Key:        rec.Key,
		Filename:   rec.Filename,
		PartNumber: part.PartNumber,
		Size:       part.Size,
		MD5:        part.ETag,
	})

	return part, nil
}

// Status returns a snapshot of the upload.
func (u *Usecase) Status(ctx context.Context, uploadID string) (entity.Upload, error) {
	rec, err := u.registry.Get(ctx, uploadID)
	if err != nil {
		return entity.Upload{}, mapStoreErr(err, uploadID)
	}
	return rec, nil
}

// Abort fails an in-progress upload and reclaims its parts. A terminal upload
// is dropped from the registry instead; its artifact, if any, is kept.
func (u *Usecase) Abort(ctx context.Context, uploadID string) (AbortResult, error) {
	release := u.gates.Lock(uploadID)
	defer release()

	rec, err := u.registry.Get(ctx, uploadID)
	if err != nil {
		return AbortResult{}, mapStoreErr(err, uploadID)
	}

	if rec.Status == entity.StatusInProgress {
		if err := u.registry.MarkFailed(ctx, uploadID, "aborted", u.clock.Now()); err != nil {
			return AbortResult{}, mapStoreErr(err, uploadID)
		}
		u.removeParts(ctx, rec.Parts)

		slog.InfoContext(ctx, "upload aborted", "upload_id", uploadID, "parts", len(rec.Parts))
		u.publish(ctx, entity.Event{
			Type:     entity.EventAborted,
			UploadID: uploadID,
			Key:      rec.Key,
			Filename: rec.Filename,
			Parts:    len(rec.Parts),
			Reason:   "aborted",
		})

		return AbortResult{UploadID: uploadID, Status: entity.StatusFailed}, nil
	}

	if err := u.registry.Delete(ctx, uploadID); err != nil {
		return AbortResult{}, mapStoreErr(err, uploadID)
	}

	return AbortResult{UploadID: uploadID, Status: rec.Status, Removed: true}, nil
}

func (u *Usecase) removeParts(ctx context.Context, parts map[int]entity.Part) {
	for _, p := range parts {
		if err := u.parts.Remove(p.Path); err != nil {
			slog.WarnContext(ctx, "failed to remove part", "path", p.Path, "error", err)
		}
	}
}

func (u *Usecase) publish(ctx context.Context, event entity.Event) {
	if u.events == nil {
		return
	}

	event.EventID = u.eventID.Generate()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = u.clock.Now()
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.PublishTimeout)
	defer cancel()

	if err := u.events.Publish(pctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "upload_id", event.UploadID, "event_id", event.EventID, "type", event.Type, "error", err)
	}
}

func validatePartNumber(n int) error {
	if n < 1 || n > MaxParts {
		return pkgerror.NewInvalidInput(fmt.Errorf("part number must be between 1 and %d", MaxParts))
	}
	return nil
}

// partFilename matches the names the part store gives in-flight parts.
// Artifacts share the directory with parts, so such names are refused.
//
//nolint:gochecknoglobals // compiled once
var partFilename = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*-part[0-9]+$`)

// sanitizeFilename keeps only the last path element so a client cannot write
// outside the upload directory.
func sanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", pkgerror.NewInvalidInput(errors.New("fileName is required"))
	}

	base := filepath.Base(strings.ReplaceAll(trimmed, `\`, "/"))
	switch {
	case base == "." || base == ".." || base == "/":
		return "", entity.InvalidFilenameError(name)
	case strings.HasPrefix(base, "."):
		return "", entity.InvalidFilenameError(name)
	case strings.ContainsRune(base, 0) || !utf8.ValidString(base):
		return "", entity.InvalidFilenameError(name)
	case len(base) > 255:
		return "", entity.InvalidFilenameError(name)
	case partFilename.MatchString(base):
		return "", entity.InvalidFilenameError(name)
	}

	return base, nil
}

func buildKey(uploadID string, prefixes ...string) string {
	segments := make([]string, 0, len(prefixes)+1)
	for _, p := range prefixes {
		if p = strings.Trim(strings.TrimSpace(p), "/"); p != "" {
			segments = append(segments, p)
		}
	}
	return strings.Join(append(segments, uploadID), "/")
}

func mapBodyErr(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return entity.PartTooLargeError(maxErr.Limit)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pkgerror.Wrap(err, "request canceled", pkgerror.TypeBusiness, pkgerror.CodeTimeout)
	}

	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.Wrap(err, "failed to read part body", pkgerror.TypeValidation, pkgerror.CodeInvalidFormat)
}

func mapStoreErr(err error, uploadID string) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return entity.UnknownUploadError(uploadID)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	return pkgerror.NewServer(err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
