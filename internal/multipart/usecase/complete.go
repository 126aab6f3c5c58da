package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/shandysiswandi/gomultipart/internal/multipart/assemble"
	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
)

// Complete verifies the manifest against the recorded parts and assembles the
// final artifact.
//
// Nothing is assembled unless every listed part verifies. A verification
// failure leaves the upload in progress so the client may re-send the part; a
// failure while assembling marks it failed.
func (u *Usecase) Complete(ctx context.Context, in CompleteInput) (res CompleteResult, err error) {
	ctx, span := u.tracer.Start(ctx, "multipart.Complete", trace.WithAttributes(
		attribute.String("upload.id", in.UploadID),
		attribute.Int("upload.manifest_parts", len(in.Parts)),
	))
	defer func() { endSpan(span, err) }()

	release := u.gates.Lock(in.UploadID)
	defer release()

	rec, err := u.registry.Get(ctx, in.UploadID)
	if err != nil {
		return CompleteResult{}, mapStoreErr(err, in.UploadID)
	}
	if rec.Status != entity.StatusInProgress {
		return CompleteResult{}, entity.InvalidStateError(in.UploadID, rec.Status)
	}

	manifest, err := normalizeManifest(in.Parts)
	if err != nil {
		return CompleteResult{}, err
	}

	sources, err := u.verify(ctx, rec, manifest)
	if err != nil {
		slog.WarnContext(ctx, "upload verification failed", "upload_id", in.UploadID, "error", err)
		return CompleteResult{}, err
	}

	// past this point the work runs to the end even if the client goes away
	ctx = context.WithoutCancel(ctx)
	finalPath := filepath.Join(u.cfg.Dir, rec.Filename)

	out, err := u.assembler.Assemble(ctx, finalPath, sources)
	if err != nil {
		u.fail(ctx, rec, err.Error(), entity.EventFailed)
		return CompleteResult{}, normalizeErr(err)
	}

	// parts uploaded but left out of the manifest
	for n, p := range rec.Parts {
		if n > len(manifest) {
			if err := u.parts.Remove(p.Path); err != nil {
				slog.WarnContext(ctx, "failed to remove unused part", "path", p.Path, "error", err)
			}
		}
	}

	location := u.cfg.PublicPrefix + "/" + url.PathEscape(rec.Filename)
	done := entity.Upload{
		FinalPath: out.Path,
		Location:  location,
		Size:      out.Size,
		MD5:       out.MD5,
	}
	if err := u.registry.MarkCompleted(ctx, rec.ID, done, u.clock.Now()); err != nil {
		return CompleteResult{}, mapStoreErr(err, rec.ID)
	}

	slog.InfoContext(ctx, "upload completed",
		"upload_id", rec.ID,
		"parts", len(sources),
		"size", out.Size,
		"path", out.Path,
	)

	u.publish(ctx, entity.Event{
		Type:      entity.EventCompleted,
		UploadID:  rec.ID,
		Key:       rec.Key,
		Filename:  rec.Filename,
		FileType:  rec.FileType,
		Parts:     len(sources),
		Size:      out.Size,
		MD5:       out.MD5,
		FinalPath: out.Path,
		Location:  location,
	})

	return CompleteResult{
		UploadID: rec.ID,
		Key:      rec.Key,
		Location: location,
		Size:     out.Size,
		MD5:      out.MD5,
		Parts:    len(sources),
	}, nil
}

// normalizeManifest sorts entries by part number and checks they run 1..N.
func normalizeManifest(parts []entity.ManifestEntry) ([]entity.ManifestEntry, error) {
	if len(parts) == 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("parts must not be empty"))
	}
	if len(parts) > MaxParts {
		return nil, pkgerror.NewInvalidInput(fmt.Errorf("parts must not exceed %d entries", MaxParts))
	}

	sorted := slices.Clone(parts)
	slices.SortStableFunc(sorted, func(a, b entity.ManifestEntry) int {
		return a.PartNumber - b.PartNumber
	})

	for i := range sorted {
		want := i + 1
		switch got := sorted[i].PartNumber; {
		case got == want:
		case got < want:
			return nil, entity.VerificationError(got, "duplicate part number in manifest")
		default:
			return nil, entity.VerificationError(want, "part missing from manifest")
		}
		sorted[i].ETag = normalizeETag(sorted[i].ETag)
	}

	return sorted, nil
}

// normalizeETag accepts quoted and upper-case forms as returned by browsers.
func normalizeETag(etag string) string {
	etag = strings.TrimSpace(etag)
	etag = strings.TrimPrefix(etag, "W/")
	return strings.ToLower(strings.Trim(etag, `"`))
}

// verify checks each manifest entry against the registry, then re-hashes the
// stored bytes. The lowest failing part number is reported.
func (u *Usecase) verify(ctx context.Context, rec entity.Upload, manifest []entity.ManifestEntry) ([]assemble.Source, error) {
	sources := make([]assemble.Source, len(manifest))
	for i, m := range manifest {
		part, ok := rec.Parts[m.PartNumber]
		if !ok {
			return nil, entity.VerificationError(m.PartNumber, "part was not uploaded")
		}
		if part.ETag != m.ETag {
			return nil, entity.VerificationError(m.PartNumber, "etag mismatch")
		}
		sources[i] = assemble.Source{PartNumber: m.PartNumber, Path: part.Path, ETag: part.ETag}
	}

	failures := make([]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.VerifyConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			etag, size, err := u.parts.Hash(gctx, src.Path)
			switch {
			case errors.Is(err, entity.ErrPartNotFound):
				failures[i] = "part missing from storage"
				return nil
			case err != nil:
				return err
			case etag != src.ETag:
				failures[i] = "stored bytes do not match etag"
			case size != rec.Parts[src.PartNumber].Size:
				failures[i] = "stored size changed"
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, normalizeErr(err)
	}

	for i, reason := range failures {
		if reason != "" {
			return nil, entity.VerificationError(sources[i].PartNumber, reason)
		}
	}

	return sources, nil
}

// fail marks the upload failed, drops its parts and announces it. The caller
// holds the upload gate.
func (u *Usecase) fail(ctx context.Context, rec entity.Upload, reason string, kind entity.EventType) {
	if err := u.registry.MarkFailed(ctx, rec.ID, reason, u.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to mark upload failed", "upload_id", rec.ID, "error", err)
	}
	u.removeParts(ctx, rec.Parts)

	slog.WarnContext(ctx, "upload failed", "upload_id", rec.ID, "reason", reason)

	u.publish(ctx, entity.Event{
		Type:     kind,
		UploadID: rec.ID,
		Key:      rec.Key,
		Filename: rec.Filename,
		Parts:    len(rec.Parts),
		Reason:   reason,
	})
}
