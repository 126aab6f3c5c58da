package entity

import (
	"maps"
	"slices"
	"time"
)

type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Part is the stored chunk of an upload. ETag is the lowercase hex MD5 of the
// stored bytes.
type Part struct {
	PartNumber int
	ETag       string
	Size       int64
	Path       string
	UploadedAt time.Time
}

type Upload struct {
	ID       string
	Filename string
	FileType string
	Key      string
	Metadata map[string]string
	Parts    map[int]Part
	Status   Status

	StartTime    time.Time
	LastActivity time.Time
	FinishedAt   time.Time

	// set once completed
	FinalPath string
	Location  string
	Size      int64
	MD5       string

	FailureReason string
}

// Clone returns a deep copy safe to hand out of the registry.
func (u Upload) Clone() Upload {
	u.Metadata = maps.Clone(u.Metadata)
	u.Parts = maps.Clone(u.Parts)
	return u
}

// PartNumbers returns the uploaded part numbers in ascending order.
func (u Upload) PartNumbers() []int {
	return slices.Sorted(maps.Keys(u.Parts))
}

// ManifestEntry is one (part number, etag) pair sent by the client at completion.
type ManifestEntry struct {
	PartNumber int
	ETag       string
}
