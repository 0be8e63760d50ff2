package tryon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PJ1229/OOTD/internal/media"
)

// Session is one try-on screen: a model image slot, a garment image slot and
// at most one job in flight.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID

	mu                sync.Mutex
	model             media.Image
	garment           media.Image
	showUploadGarment bool
	submitting        bool
	job               *Job
	jobRowID          uuid.UUID
	archiveURL        string
	lastErr           error
	cancel            context.CancelFunc
	closed            bool
	updatedAt         time.Time
	lastSeen          time.Time
}

// Snapshot is a consistent read of a session.
type Snapshot struct {
	SessionID         uuid.UUID
	State             State
	JobID             string
	HasModelImage     bool
	HasGarmentImage   bool
	ShowUploadGarment bool
	ResultURL         string
	ArchiveURL        string
	Attempts          int
	Err               error
	UpdatedAt         time.Time
}

func newSession(userID uuid.UUID, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		updatedAt: time.Now().UTC(),
		lastSeen:  now,
	}
}

// inFlight must be called with mu held.
func (s *Session) inFlight() bool {
	return s.submitting || (s.job != nil && s.job.State == StateSubmitted)
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

func (s *Session) seen(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// shut marks the session closed and stops its poll loop.
func (s *Session) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:         s.ID,
		State:             StateIdle,
		HasModelImage:     !s.model.Empty(),
		HasGarmentImage:   !s.garment.Empty(),
		ShowUploadGarment: s.showUploadGarment,
		ArchiveURL:        s.archiveURL,
		Err:               s.lastErr,
		UpdatedAt:         s.updatedAt,
	}
	if s.submitting {
		snap.State = StateSubmitted
	}
	if s.job != nil {
		snap.State = s.job.State
		snap.JobID = s.job.ID
		snap.ResultURL = s.job.ResultURL
		snap.Attempts = s.job.Attempts
		if s.job.Err != nil {
			snap.Err = s.job.Err
		}
	}
	return snap
}
