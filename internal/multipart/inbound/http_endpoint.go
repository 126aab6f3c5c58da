package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/multipart/usecase"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgsign"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Hello(ctx context.Context, r *http.Request) (any, error) {
	return HelloResponse{Message: "Hello from gomultipart!"}, nil
}

func (h *HTTPEndpoint) CSRFToken(ctx context.Context, r *http.Request) (any, error) {
	token, err := pkgsign.RandomHex(8)
	if err != nil {
		return nil, pkgerror.NewServer(err)
	}

	return CSRFTokenResponse{CSRFToken: token}, nil
}

func (h *HTTPEndpoint) InitUpload(ctx context.Context, r *http.Request) (any, error) {
	var req InitUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	candidateID := req.CandidateID
	if candidateID == "" {
		candidateID = req.Candidate
	}

	result, err := h.uc.Initialize(ctx, usecase.InitializeInput{
		Filename:    req.FileName,
		FileType:    req.FileType,
		InterviewID: strings.TrimSpace(req.InterviewID),
		CandidateID: strings.TrimSpace(candidateID),
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	return InitUploadResponse{UploadID: result.UploadID, Key: result.Key}, nil
}

func (h *HTTPEndpoint) PartURL(ctx context.Context, r *http.Request) (any, error) {
	var req PartURLRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UploadID) == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("uploadId is required"))
	}

	target, err := h.uc.RequestPartTarget(ctx, req.UploadID, req.PartNumber)
	if err != nil {
		return nil, err
	}

	resp := PartURLResponse{URL: target.URL}
	if !target.ExpiresAt.IsZero() {
		resp.ExpiresAt = &target.ExpiresAt
	}

	return resp, nil
}

func (h *HTTPEndpoint) UploadPart(ctx context.Context, r *http.Request) (any, error) {
	uploadID := pkgrouter.GetParam(ctx, "uploadId")

	partNumber, err := strconv.Atoi(pkgrouter.GetParam(ctx, "partNumber"))
	if err != nil {
		return nil, pkgerror.NewInvalidInput(errors.New("partNumber must be an integer"))
	}

	query := r.URL.Query()
	// a malformed expiry fails signature verification
	expires, _ := strconv.ParseInt(query.Get("expires"), 10, 64)

	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = r.Body
	}

	part, err := h.uc.AcceptPart(ctx, usecase.AcceptPartInput{
		UploadID:   uploadID,
		PartNumber: partNumber,
		Body:       body,
		Expires:    expires,
		Signature:  query.Get("signature"),
	})
	if err != nil {
		return nil, err
	}

	return UploadPartResponse{PartNumber: part.PartNumber, ETag: part.ETag, Size: part.Size}, nil
}

func (h *HTTPEndpoint) CompleteUpload(ctx context.Context, r *http.Request) (any, error) {
	var req CompleteUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UploadID) == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("uploadId is required"))
	}

	manifest := make([]entity.ManifestEntry, 0, len(req.Parts))
	for _, p := range req.Parts {
		manifest = append(manifest, entity.ManifestEntry{PartNumber: p.PartNumber, ETag: p.ETag})
	}

	result, err := h.uc.Complete(ctx, usecase.CompleteInput{UploadID: req.UploadID, Parts: manifest})
	if err != nil {
		return nil, err
	}

	return CompleteUploadResponse{
		UploadID: result.UploadID,
		Key:      result.Key,
		Location: result.Location,
		Size:     result.Size,
		MD5:      result.MD5,
	}, nil
}

// CompleteInterview acknowledges the interview wrap-up call. The payload is
// free-form and only logged.
func (h *HTTPEndpoint) CompleteInterview(ctx context.Context, r *http.Request) (any, error) {
	var req map[string]any
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "interview upload completed", "fields", len(req))

	return CompleteInterviewResponse{Received: len(req)}, nil
}

func (h *HTTPEndpoint) UploadStatus(ctx context.Context, r *http.Request) (any, error) {
	rec, err := h.uc.Status(ctx, pkgrouter.GetParam(ctx, "uploadId"))
	if err != nil {
		return nil, err
	}

	return toStatusResponse(rec), nil
}

func (h *HTTPEndpoint) AbortUpload(ctx context.Context, r *http.Request) (any, error) {
	result, err := h.uc.Abort(ctx, pkgrouter.GetParam(ctx, "uploadId"))
	if err != nil {
		return nil, err
	}

	return AbortUploadResponse{UploadID: result.UploadID, Status: result.Status, Removed: result.Removed}, nil
}

func toStatusResponse(rec entity.Upload) UploadStatusResponse {
	parts := make([]PartView, 0, len(rec.Parts))
	for _, n := range rec.PartNumbers() {
		p := rec.Parts[n]
		parts = append(parts, PartView{PartNumber: n, ETag: p.ETag, Size: p.Size, UploadedAt: p.UploadedAt})
	}

	resp := UploadStatusResponse{
		UploadID:      rec.ID,
		Key:           rec.Key,
		FileName:      rec.Filename,
		FileType:      rec.FileType,
		Status:        rec.Status,
		Metadata:      rec.Metadata,
		Parts:         parts,
		StartTime:     rec.StartTime,
		LastActivity:  rec.LastActivity,
		Location:      rec.Location,
		Size:          rec.Size,
		MD5:           rec.MD5,
		FailureReason: rec.FailureReason,
	}
	if !rec.FinishedAt.IsZero() {
		resp.CompletedAt = &rec.FinishedAt
	}

	return resp
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return pkgerror.NewInvalidInput(errors.New("request body is required"))
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return pkgerror.NewBusiness("Request body too large", pkgerror.CodeTooLarge)
		case errors.Is(err, io.EOF):
			return pkgerror.NewInvalidInput(errors.New("request body is required"))
		default:
			return pkgerror.NewInvalidFormat()
		}
	}

	return nil
}
