package tryon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PJ1229/OOTD/internal/fashn"
)

// State is the lifecycle of one try-on job.
//
//	idle --submit--> submitted --poll: pending--> submitted
//	                 submitted --poll: completed--> completed
//	                 submitted --poll: failed / poll error--> failed
//	                 submitted --attempt cap / timeout--> timed_out
type State string

const (
	StateIdle      State = "idle"
	StateSubmitted State = "submitted"
	StateDone      State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateTimedOut
}

var (
	ErrJobFailed       = errors.New("try-on job failed")
	ErrTimedOut        = errors.New("try-on job timed out")
	ErrNoOutput        = errors.New("try-on job completed without output")
	ErrJobInFlight     = errors.New("a try-on job is already in flight for this session")
	ErrSessionNotFound = errors.New("try-on session not found")
)

// API is the part of the synthesis client the job flow depends on.
type API interface {
	Run(ctx context.Context, req fashn.RunRequest) (string, error)
	Status(ctx context.Context, jobID string) (*fashn.StatusResponse, error)
}

// PollConfig bounds the status loop. Interval is the fixed wait between
// sequential status requests.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    2 * time.Second,
		MaxAttempts: 90,
		Timeout:     3 * time.Minute,
	}
}

// Job is the client-side view of a remote job.
type Job struct {
	ID        string
	State     State
	ResultURL string
	Attempts  int
	Err       error
}

// Poll requests the job status until a terminal status is observed, the
// attempt cap or timeout is hit, or ctx is cancelled. A failing status
// request ends the job as failed and is not retried.
func Poll(ctx context.Context, api API, jobID string, cfg PollConfig) Job {
	job := Job{ID: jobID, State: StateSubmitted}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	for {
		if cfg.MaxAttempts > 0 && job.Attempts >= cfg.MaxAttempts {
			job.State = StateTimedOut
			job.Err = fmt.Errorf("%w after %d attempts", ErrTimedOut, job.Attempts)
			return job
		}

		job.Attempts++
		status, err := api.Status(ctx, jobID)
		if err != nil {
			return stopped(ctx, job, err)
		}

		switch status.Status {
		case fashn.StatusCompleted:
			if len(status.Output) == 0 {
				job.State = StateFailed
				job.Err = ErrNoOutput
				return job
			}
			job.State = StateDone
			job.ResultURL = status.Output[0]
			return job
		case fashn.StatusFailed, fashn.StatusCanceled:
			job.State = StateFailed
			job.Err = ErrJobFailed
			if status.Status == fashn.StatusCanceled {
				job.Err = fmt.Errorf("%w: canceled remotely", ErrJobFailed)
			}
			if len(status.Error) > 0 && string(status.Error) != "null" {
				job.Err = fmt.Errorf("%w: %s", ErrJobFailed, string(status.Error))
			}
			return job
		}

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return stopped(ctx, job, ctx.Err())
		case <-timer.C:
		}
	}
}

func stopped(ctx context.Context, job Job, err error) Job {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		job.State = StateTimedOut
		job.Err = fmt.Errorf("%w: %v", ErrTimedOut, err)
		return job
	}
	job.State = StateFailed
	job.Err = fmt.Errorf("failed to poll job %s: %w", job.ID, err)
	return job
}
