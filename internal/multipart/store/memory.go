package store

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
)

// InMemoryRegistry holds upload records for the life of the process.
//
// The map lock only guards membership; each record carries its own lock so
// updates to different uploads never contend.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	uploads map[string]*uploadRecord
}

type uploadRecord struct {
	mu     sync.RWMutex
	upload entity.Upload
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		uploads: make(map[string]*uploadRecord),
	}
}

func (s *InMemoryRegistry) Create(ctx context.Context, upload entity.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.uploads[upload.ID]; exists {
		return pkgerror.NewBusiness("upload already exists", pkgerror.CodeConflict)
	}

	upload = upload.Clone()
	if upload.Parts == nil {
		upload.Parts = make(map[int]entity.Part)
	}
	if upload.Status == "" {
		upload.Status = entity.StatusInProgress
	}

	s.uploads[upload.ID] = &uploadRecord{upload: upload}

	return nil
}

// Get returns a snapshot of the record.
func (s *InMemoryRegistry) Get(ctx context.Context, uploadID string) (entity.Upload, error) {
	rec, err := s.get(uploadID)
	if err != nil {
		return entity.Upload{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.upload.Clone(), nil
}

// RecordPart stores or replaces the part entry and refreshes LastActivity.
func (s *InMemoryRegistry) RecordPart(ctx context.Context, uploadID string, part entity.Part) error {
	return s.Update(ctx, uploadID, func(u *entity.Upload) error {
		if u.Status != entity.StatusInProgress {
			return entity.InvalidStateError(u.ID, u.Status)
		}
		u.Parts[part.PartNumber] = part
		if part.UploadedAt.After(u.LastActivity) {
			u.LastActivity = part.UploadedAt
		}
		return nil
	})
}

func (s *InMemoryRegistry) MarkCompleted(ctx context.Context, uploadID string, done entity.Upload, at time.Time) error {
	return s.Update(ctx, uploadID, func(u *entity.Upload) error {
		if u.Status.Terminal() {
			return entity.InvalidStateError(u.ID, u.Status)
		}
		u.Status = entity.StatusCompleted
		u.FinalPath = done.FinalPath
		u.Location = done.Location
		u.Size = done.Size
		u.MD5 = done.MD5
		u.FinishedAt = at
		u.LastActivity = at
		return nil
	})
}

func (s *InMemoryRegistry) MarkFailed(ctx context.Context, uploadID, reason string, at time.Time) error {
	return s.Update(ctx, uploadID, func(u *entity.Upload) error {
		if u.Status.Terminal() {
			return entity.InvalidStateError(u.ID, u.Status)
		}
		u.Status = entity.StatusFailed
		u.FailureReason = reason
		u.FinishedAt = at
		u.LastActivity = at
		return nil
	})
}

// Update applies fn to the record under its write lock. The record is left
// untouched when fn returns an error.
func (s *InMemoryRegistry) Update(ctx context.Context, uploadID string, fn func(u *entity.Upload) error) error {
	rec, err := s.get(uploadID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.upload.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	rec.upload = next

	return nil
}

func (s *InMemoryRegistry) Delete(ctx context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[uploadID]; !ok {
		return pkgerror.ErrNotFound
	}
	delete(s.uploads, uploadID)

	return nil
}

// List returns snapshots of every record.
func (s *InMemoryRegistry) List(ctx context.Context) []entity.Upload {
	s.mu.RLock()
	recs := make([]*uploadRecord, 0, len(s.uploads))
	for _, rec := range s.uploads {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]entity.Upload, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		out = append(out, rec.upload.Clone())
		rec.mu.RUnlock()
	}

	return out
}

func (s *InMemoryRegistry) get(uploadID string) (*uploadRecord, error) {
	s.mu.RLock()
	rec, ok := s.uploads[uploadID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
