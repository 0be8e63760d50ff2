package tryon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/fashn"
	"github.com/PJ1229/OOTD/internal/media"
	"github.com/PJ1229/OOTD/internal/models"
	"github.com/PJ1229/OOTD/internal/storage"
)

// JobRecorder persists job rows. Recording failures are logged and never
// change the outcome of a job.
type JobRecorder interface {
	CreateTryOnJob(ctx context.Context, job *models.TryOnJob) error
	UpdateTryOnJob(ctx context.Context, job *models.TryOnJob) error
}

// Downloader fetches a finished result so it can be archived.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	Poll PollConfig
	// SessionTTL is how long a session may go without a request before it
	// is evicted. Zero keeps sessions until they are closed.
	SessionTTL time.Duration
	Category   string
	Recorder   JobRecorder
	Archive    storage.ObjectStore
	Downloader Downloader
	Logger     zerolog.Logger
}

// Service owns the live try-on sessions of the process.
type Service struct {
	api  API
	opts Options

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewService(api API, opts Options) *Service {
	if opts.Category == "" {
		opts.Category = "tops"
	}
	if opts.Poll.Interval <= 0 {
		opts.Poll = DefaultPollConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		api:      api,
		opts:     opts,
		baseCtx:  ctx,
		stop:     cancel,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
	if opts.SessionTTL > 0 {
		s.wg.Add(1)
		go s.reapLoop(reapInterval(opts.SessionTTL))
	}
	return s
}

func reapInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 2; interval < time.Minute {
		return interval
	}
	return time.Minute
}

func (s *Service) reapLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-ticker.C:
			s.Reap(s.now())
		}
	}
}

// Reap evicts every session that has been idle for at least SessionTTL as
// of now and stops its poll loop. It returns the number evicted.
func (s *Service) Reap(now time.Time) int {
	if s.opts.SessionTTL <= 0 {
		return 0
	}
	var idle []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(now) >= s.opts.SessionTTL {
			delete(s.sessions, id)
			idle = append(idle, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.shut()
		s.opts.Logger.Info().Str("session_id", sess.ID.String()).Msg("idle try-on session evicted")
	}
	return len(idle)
}

func (s *Service) NewSession(userID uuid.UUID) Snapshot {
	sess := newSession(userID, s.now())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess.Snapshot()
}

func (s *Service) session(id, userID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	sess.seen(s.now())
	return sess, nil
}

func (s *Service) Get(id, userID uuid.UUID) (Snapshot, error) {
	sess, err := s.session(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// SetModelImage fills the model slot. With a garment already present the
// job is submitted right away; otherwise the session asks for a garment.
func (s *Service) SetModelImage(ctx context.Context, id, userID uuid.UUID, img media.Image) (Snapshot, error) {
	sess, err := s.session(id, userID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	if sess.inFlight() {
		sess.mu.Unlock()
		return sess.Snapshot(), ErrJobInFlight
	}
	sess.model = img
	sess.showUploadGarment = sess.garment.Empty()
	sess.touch()
	sess.mu.Unlock()

	err = s.submit(ctx, sess)
	return sess.Snapshot(), err
}

// SetGarmentImage fills the garment slot and submits with the current model
// image. Garments picked from the library hide the upload affordance.
func (s *Service) SetGarmentImage(ctx context.Context, id, userID uuid.UUID, img media.Image, fromLibrary bool) (Snapshot, error) {
	sess, err := s.session(id, userID)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	if sess.inFlight() {
		sess.mu.Unlock()
		return sess.Snapshot(), ErrJobInFlight
	}
	sess.garment = img
	if fromLibrary {
		sess.showUploadGarment = false
	}
	sess.touch()
	sess.mu.Unlock()

	err = s.submit(ctx, sess)
	return sess.Snapshot(), err
}

// submit is a no-op unless both slots hold an image.
func (s *Service) submit(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	if sess.model.Empty() || sess.garment.Empty() {
		sess.mu.Unlock()
		return nil
	}
	if sess.inFlight() {
		sess.mu.Unlock()
		return ErrJobInFlight
	}
	sess.submitting = true
	req := s.runRequest(sess.model, sess.garment)
	sess.mu.Unlock()

	jobID, err := s.api.Run(ctx, req)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.submitting = false
	sess.touch()

	if err != nil {
		s.opts.Logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("try-on submission failed")
		sess.job = nil
		sess.lastErr = fmt.Errorf("failed to submit try-on job: %w", err)
		return sess.lastErr
	}
	if sess.closed {
		return ErrSessionNotFound
	}

	sess.lastErr = nil
	sess.archiveURL = ""
	sess.job = &Job{ID: jobID, State: StateSubmitted}
	sess.jobRowID = uuid.New()
	s.record(ctx, sess, true)

	pollCtx, cancel := context.WithCancel(s.baseCtx)
	sess.cancel = cancel
	s.wg.Add(1)
	go s.poll(pollCtx, cancel, sess, jobID)

	s.opts.Logger.Info().Str("session_id", sess.ID.String()).Str("job_id", jobID).Msg("try-on job submitted")
	return nil
}

func (s *Service) runRequest(model, garment media.Image) fashn.RunRequest {
	return fashn.RunRequest{
		ModelImage:        model.DataURI(),
		GarmentImage:      garment.DataURI(),
		Category:          s.opts.Category,
		RestoreBackground: true,
		RestoreClothes:    true,
	}
}

func (s *Service) poll(ctx context.Context, cancel context.CancelFunc, sess *Session, jobID string) {
	defer s.wg.Done()
	defer cancel()

	job := Poll(ctx, s.api, jobID, s.opts.Poll)
	if errors.Is(ctx.Err(), context.Canceled) {
		// session closed or service shutting down
		return
	}

	var archiveURL string
	if job.State == StateDone {
		archiveURL = s.archive(ctx, sess.ID, job)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.job == nil || sess.job.ID != jobID {
		return
	}
	sess.job = &job
	sess.archiveURL = archiveURL
	if job.State == StateDone {
		sess.showUploadGarment = false
	}
	sess.touch()
	s.record(ctx, sess, false)

	event := s.opts.Logger.Info()
	if job.Err != nil {
		event = s.opts.Logger.Warn().Err(job.Err)
	}
	event.Str("session_id", sess.ID.String()).
		Str("job_id", jobID).
		Str("state", string(job.State)).
		Int("attempts", job.Attempts).
		Msg("try-on job finished")
}

// archive copies a finished result into the configured store. Failures are
// logged and leave the remote result URL as the only output.
func (s *Service) archive(ctx context.Context, sessionID uuid.UUID, job Job) string {
	if s.opts.Archive == nil || s.opts.Downloader == nil {
		return ""
	}
	data, err := s.opts.Downloader.Download(ctx, job.ResultURL)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to download try-on result")
		return ""
	}
	img, err := media.FromBytes(data)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("try-on result is not an image")
		return ""
	}
	key := fmt.Sprintf("tryons/%s/%s%s", sessionID, job.ID, img.Extension())
	url, err := s.opts.Archive.Upload(ctx, key, img.MIME, img.Data)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to archive try-on result")
		return ""
	}
	return url
}

// record must be called with sess.mu held.
func (s *Service) record(ctx context.Context, sess *Session, create bool) {
	if s.opts.Recorder == nil || sess.job == nil {
		return
	}
	row := &models.TryOnJob{
		ID:        sess.jobRowID,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		RemoteID:  sess.job.ID,
		Status:    string(sess.job.State),
		Attempts:  sess.job.Attempts,
		UpdatedAt: time.Now().UTC(),
	}
	if sess.job.ResultURL != "" {
		row.ResultURL = sql.NullString{String: sess.job.ResultURL, Valid: true}
	}
	if sess.archiveURL != "" {
		row.ArchiveURL = sql.NullString{String: sess.archiveURL, Valid: true}
	}
	if sess.job.Err != nil {
		row.ErrorMessage = sql.NullString{String: sess.job.Err.Error(), Valid: true}
	}

	var err error
	if create {
		row.CreatedAt = row.UpdatedAt
		err = s.opts.Recorder.CreateTryOnJob(ctx, row)
	} else {
		err = s.opts.Recorder.UpdateTryOnJob(ctx, row)
	}
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("job_id", sess.job.ID).Msg("failed to record try-on job")
	}
}

// Close drops a session and stops its poll loop.
func (s *Service) Close(id, userID uuid.UUID) error {
	sess, err := s.session(id, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	sess.shut()
	return nil
}

// Shutdown cancels every poll loop and waits for them to return or for ctx
// to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run submits one job outside of any session and blocks until it reaches a
// terminal state. An empty image makes it a no-op that returns an idle job.
func (s *Service) Run(ctx context.Context, model, garment media.Image) (Job, string, error) {
	if model.Empty() || garment.Empty() {
		return Job{State: StateIdle}, "", nil
	}
	jobID, err := s.api.Run(ctx, s.runRequest(model, garment))
	if err != nil {
		return Job{State: StateIdle}, "", fmt.Errorf("failed to submit try-on job: %w", err)
	}
	job := Poll(ctx, s.api, jobID, s.opts.Poll)
	var archiveURL string
	if job.State == StateDone {
		archiveURL = s.archive(ctx, uuid.Nil, job)
	}
	return job, archiveURL, job.Err
}
