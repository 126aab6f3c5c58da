package inbound

import (
	"context"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/multipart/usecase"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
)

type uc interface {
	Initialize(ctx context.Context, in usecase.InitializeInput) (usecase.InitializeResult, error)
	RequestPartTarget(ctx context.Context, uploadID string, partNumber int) (usecase.PartTarget, error)
	AcceptPart(ctx context.Context, in usecase.AcceptPartInput) (entity.Part, error)
	Complete(ctx context.Context, in usecase.CompleteInput) (usecase.CompleteResult, error)
	Status(ctx context.Context, uploadID string) (entity.Upload, error)
	Abort(ctx context.Context, uploadID string) (usecase.AbortResult, error)
}

// Limits caps request bodies. Zero disables a cap.
type Limits struct {
	MaxJSONBytes int64
	MaxPartBytes int64
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, limits Limits) {
	end := &HTTPEndpoint{uc: uc}

	jsonLimit := pkgrouter.MiddlewareBodyLimit(limits.MaxJSONBytes)

	r.GET("/api", end.Hello)
	r.GET("/api/get-csrf-token/", end.CSRFToken)

	r.POST("/api/init-multipart-upload/", end.InitUpload, jsonLimit)
	r.POST("/api/get-upload-part-url/", end.PartURL, jsonLimit)
	r.PUT("/api/upload-part/:uploadId/:partNumber", end.UploadPart, pkgrouter.MiddlewareBodyLimit(limits.MaxPartBytes)) // ?expires=&signature=
	r.POST("/api/complete-multipart-upload/", end.CompleteUpload, jsonLimit)
	r.POST("/api/complete-interview-upload/", end.CompleteInterview, jsonLimit)

	r.GET("/api/uploads/:uploadId", end.UploadStatus)
	r.DELETE("/api/uploads/:uploadId", end.AbortUpload)
}
