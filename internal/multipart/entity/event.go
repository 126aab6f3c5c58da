package entity

import "time"

type EventType string

const (
	EventInitialized  EventType = "upload.initialized"
	EventPartAccepted EventType = "upload.part_accepted"
	EventCompleted    EventType = "upload.completed"
	EventFailed       EventType = "upload.failed"
	EventAborted      EventType = "upload.aborted"
	EventExpired      EventType = "upload.expired"
)

// Event describes a lifecycle transition of an upload.
type Event struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	UploadID   string    `json:"upload_id"`
	Key        string    `json:"key"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type,omitempty"`
	PartNumber int       `json:"part_number,omitempty"`
	Parts      int       `json:"parts,omitempty"`
	Size       int64     `json:"size,omitempty"`
	MD5        string    `json:"md5,omitempty"`
	FinalPath  string    `json:"-"`
	Location   string    `json:"location,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
