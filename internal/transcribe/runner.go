package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrJobFailed is returned when the provider reports the job as FAILED.
	ErrJobFailed = errors.New("transcription job failed")

	// ErrWaitExceeded is returned when a job does not reach a terminal
	// state within the configured maximum wait.
	ErrWaitExceeded = errors.New("transcription job did not finish in time")
)

// RunnerConfig bounds the polling loop. PollInterval is the first wait
// between status checks; subsequent waits double up to MaxInterval.
// MaxWait caps the total time spent waiting for a terminal state.
type RunnerConfig struct {
	PollInterval time.Duration
	MaxInterval  time.Duration
	MaxWait      time.Duration
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxInterval < c.PollInterval {
		c.MaxInterval = c.PollInterval
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 10 * time.Minute
	}
	return c
}

// Runner submits a job and polls it to completion.
type Runner struct {
	svc   Service
	cfg   RunnerConfig
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(svc Service, cfg RunnerConfig) *Runner {
	return &Runner{
		svc:   svc,
		cfg:   cfg.withDefaults(),
		sleep: sleepCtx,
	}
}

// Run submits the job and polls until it reaches a terminal state, the
// context is cancelled, or the maximum wait elapses. On COMPLETED it
// returns the transcript result URI. notify fires once per poll
// iteration; nil disables it. The job record is deleted exactly once
// before returning, whatever the outcome; deletion failures are logged
// and swallowed.
func (r *Runner) Run(ctx context.Context, req JobRequest, notify Notifier) (string, error) {
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	// Best-effort cleanup covers every exit, submission failures
	// included; a delete of a job that never registered just logs.
	defer r.deleteJob(req.Name)

	if err := r.svc.Start(ctx, req); err != nil {
		return "", fmt.Errorf("start job %s: %w", req.Name, err)
	}

	slog.Info("transcription job started", "job", req.Name, "media", req.MediaURI)

	deadline := time.Now().Add(r.cfg.MaxWait)
	interval := r.cfg.PollInterval

	for {
		notify.Working(req.Name)

		state, err := r.svc.Status(ctx, req.Name)
		if err != nil {
			return "", fmt.Errorf("poll job %s: %w", req.Name, err)
		}

		switch state.Status {
		case StatusCompleted:
			slog.Info("transcription job completed", "job", req.Name, "transcript_uri", state.TranscriptURI)
			return state.TranscriptURI, nil
		case StatusFailed:
			return "", fmt.Errorf("job %s: %w", req.Name, ErrJobFailed)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("job %s after %s: %w", req.Name, r.cfg.MaxWait, ErrWaitExceeded)
		}

		slog.Debug("transcription job still running", "job", req.Name, "status", state.Status, "next_poll", interval)
		if err := r.sleep(ctx, interval); err != nil {
			return "", fmt.Errorf("wait for job %s: %w", req.Name, err)
		}

		interval *= 2
		if interval > r.cfg.MaxInterval {
			interval = r.cfg.MaxInterval
		}
	}
}

// deleteJob removes the job record. The job's output object outlives the
// record, so losing the record is harmless and never fails the run.
func (r *Runner) deleteJob(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.svc.Delete(ctx, name); err != nil {
		slog.Warn("failed to delete transcription job", "job", name, "error", err)
		return
	}
	slog.Info("deleted transcription job", "job", name)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
