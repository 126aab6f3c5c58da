package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

type InitUploadRequest struct {
	FileName    string            `json:"fileName"`
	FileType    string            `json:"fileType"`
	InterviewID string            `json:"interviewId"`
	CandidateID string            `json:"candidateId"`
	Candidate   string            `json:"candidate_id"`
	Metadata    map[string]string `json:"metadata"`
}

type InitUploadResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

func (InitUploadResponse) Message() string {
	return "Multipart upload initialized"
}

type PartURLRequest struct {
	UploadID   string `json:"uploadId"`
	PartNumber int    `json:"partNumber"`
}

type PartURLResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type UploadPartResponse struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
	Size       int64  `json:"size"`
}

func (r UploadPartResponse) Headers() http.Header {
	return http.Header{"Etag": []string{`"` + r.ETag + `"`}}
}

func (UploadPartResponse) Message() string {
	return "Part uploaded"
}

// ManifestPart matches both {partNumber, etag} and the S3 style
// {PartNumber, ETag}; field matching is case-insensitive.
type ManifestPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

type CompleteUploadRequest struct {
	UploadID string         `json:"uploadId"`
	Parts    []ManifestPart `json:"parts"`
}

type CompleteUploadResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
	MD5      string `json:"md5"`
}

func (CompleteUploadResponse) Message() string {
	return "Upload completed successfully"
}

type CompleteInterviewResponse struct {
	Received int `json:"received"`
}

func (CompleteInterviewResponse) Message() string {
	return "Upload completed successfully"
}

type PartView struct {
	PartNumber int       `json:"partNumber"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type UploadStatusResponse struct {
	UploadID      string            `json:"uploadId"`
	Key           string            `json:"key"`
	FileName      string            `json:"fileName"`
	FileType      string            `json:"fileType,omitempty"`
	Status        entity.Status     `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Parts         []PartView        `json:"parts"`
	StartTime     time.Time         `json:"startTime"`
	LastActivity  time.Time         `json:"lastActivity"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	Location      string            `json:"location,omitempty"`
	Size          int64             `json:"size,omitempty"`
	MD5           string            `json:"md5,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
}

type AbortUploadResponse struct {
	UploadID string        `json:"uploadId"`
	Status   entity.Status `json:"status"`
	Removed  bool          `json:"removed"`
}

func (r AbortUploadResponse) Message() string {
	if r.Removed {
		return "Upload record removed"
	}
	return "Upload aborted"
}

type CSRFTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type HelloResponse struct {
	Message string `json:"message"`
}
