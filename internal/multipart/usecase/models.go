package usecase

import (
	"io"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
)

// MaxParts mirrors the S3 limit on parts per upload.
const MaxParts = 10000

type InitializeInput struct {
	Filename    string
	FileType    string
	InterviewID string
	CandidateID string
	Metadata    map[string]string
}

type InitializeResult struct {
	UploadID string
	Key      string
}

type PartTarget struct {
	UploadID   string
	PartNumber int
	URL        string
	ExpiresAt  time.Time
}

type AcceptPartInput struct {
	UploadID   string
	PartNumber int
	Body       io.Reader
	Expires    int64
	Signature  string
}

type CompleteInput struct {
	UploadID string
	Parts    []entity.ManifestEntry
}

type CompleteResult struct {
	UploadID string
	Key      string
	Location string
	Size     int64
	MD5      string
	Parts    int
}

type AbortResult struct {
	UploadID string
	Status   entity.Status
	Removed  bool
}

type SweepResult struct {
	Expired int
	Purged  int
}

// Config tunes the coordinator. Zero durations disable the related behaviour.
type Config struct {
	// Dir is where final artifacts are written.
	Dir string
	// BaseURL prefixes part-upload targets, for example "http://localhost:3000".
	BaseURL string
	// PublicPrefix prefixes the location of completed artifacts.
	PublicPrefix string

	URLTTL         time.Duration
	IdleTimeout    time.Duration
	Retention      time.Duration
	PublishTimeout time.Duration

	VerifyConcurrency int
}
