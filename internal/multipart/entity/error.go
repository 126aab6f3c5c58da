package entity

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
)

var (
	ErrUnknownUpload   = errors.New("unknown upload")
	ErrVerification    = errors.New("verification failed")
	ErrInvalidState    = errors.New("invalid upload state")
	ErrStorage         = errors.New("storage failure")
	ErrPartNotFound    = errors.New("part not found")
	ErrPartTooLarge    = errors.New("part too large")
	ErrInvalidTarget   = errors.New("invalid part target")
	ErrInvalidFilename = errors.New("invalid filename")
)

// Error kinds surfaced to clients in the error body.
const (
	KindUnknownUpload = "UNKNOWN_UPLOAD"
	KindVerification  = "VERIFICATION_FAILED"
	KindInvalidState  = "INVALID_STATE"
	KindStorage       = "STORAGE_ERROR"
	KindNotFound      = "NOT_FOUND"
	KindTooLarge      = "PAYLOAD_TOO_LARGE"
	KindForbidden     = "INVALID_SIGNATURE"
)

func UnknownUploadError(uploadID string) error {
	return pkgerror.Wrap(fmt.Errorf("%w: %s", ErrUnknownUpload, uploadID),
		"Upload ID not found", pkgerror.TypeBusiness, pkgerror.CodeNotFound).
		WithDetail("kind", KindUnknownUpload).
		WithDetail("upload_id", uploadID)
}

// VerificationError names the first part whose integrity check failed.
func VerificationError(partNumber int, reason string) error {
	return pkgerror.Wrap(fmt.Errorf("%w: part %d: %s", ErrVerification, partNumber, reason),
		"Part verification failed", pkgerror.TypeBusiness, pkgerror.CodeVerification).
		WithDetail("kind", KindVerification).
		WithDetail("part_number", partNumber).
		WithDetail("reason", reason)
}

func InvalidStateError(uploadID string, status Status) error {
	return pkgerror.Wrap(fmt.Errorf("%w: upload %s is %s", ErrInvalidState, uploadID, status),
		"Upload is "+string(status), pkgerror.TypeBusiness, pkgerror.CodeInvalidState).
		WithDetail("kind", KindInvalidState).
		WithDetail("status", string(status))
}

// StorageError wraps a filesystem failure. Running out of space maps to 507.
func StorageError(err error) error {
	code := pkgerror.CodeInternal
	if errors.Is(err, syscall.ENOSPC) {
		code = pkgerror.CodeInsufficientStorage
	}
	return pkgerror.Wrap(fmt.Errorf("%w: %w", ErrStorage, err),
		"Storage failure", pkgerror.TypeServer, code).
		WithDetail("kind", KindStorage)
}

func PartNotFoundError(path string) error {
	return pkgerror.Wrap(fmt.Errorf("%w: %s", ErrPartNotFound, path),
		"Part not found", pkgerror.TypeBusiness, pkgerror.CodeNotFound).
		WithDetail("kind", KindNotFound)
}

func PartTooLargeError(limit int64) error {
	return pkgerror.Wrap(fmt.Errorf("%w: limit %d bytes", ErrPartTooLarge, limit),
		"Part exceeds the size limit", pkgerror.TypeValidation, pkgerror.CodeTooLarge).
		WithDetail("kind", KindTooLarge).
		WithDetail("limit_bytes", limit)
}

func InvalidTargetError(err error) error {
	return pkgerror.Wrap(fmt.Errorf("%w: %w", ErrInvalidTarget, err),
		"Invalid or expired upload URL", pkgerror.TypeBusiness, pkgerror.CodeForbidden).
		WithDetail("kind", KindForbidden)
}

func InvalidFilenameError(name string) error {
	return pkgerror.Wrap(fmt.Errorf("%w: %q", ErrInvalidFilename, name),
		"Invalid file name", pkgerror.TypeValidation, pkgerror.CodeInvalidInput)
}
