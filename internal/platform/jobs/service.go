package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hrops/internal/platform/logger"
	"hrops/internal/requestctx"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrJobPanicked marks a run whose job panicked. The run is recorded as failed.
var ErrJobPanicked = errors.New("job panicked")

// RunFunc performs one job; its result is stored as the run details.
type RunFunc func(context.Context) (any, error)

// RunStore records job runs.
type RunStore interface {
	CreateJobRun(ctx context.Context, jobType string) (string, error)
	UpdateJobRun(ctx context.Context, runID, status string, detailsJSON []byte) error
}

type Service struct {
	store RunStore
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Run  RunFunc
}

func New(store RunStore) *Service {
	return &Service{
		store: store,
		queue: make(chan job, 128),
	}
}

// Start runs the queue worker until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until every goroutine started by Start and Schedule returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue hands run to the worker. It reports false when the queue is full.
func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		log.Warn().Str("job_type", jobType).Msg("job queue full")
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// Schedule runs next() as a job on every tick of interval until ctx is
// cancelled. next builds the job at tick time.
func (s *Service) Schedule(ctx context.Context, interval time.Duration, jobType string, next func() RunFunc) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.runJob(ctx, job{Type: jobType, Run: next()}); err != nil {
					log.Warn().Err(err).Str("job_type", jobType).Msg("scheduled job failed")
				}
			}
		}
	}()
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				log.Warn().Err(err).Str("job_type", j.Type).Msg("job run failed")
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.store.CreateJobRun(ctx, j.Type)
	if err != nil {
		log.Warn().Err(err).Str("job_type", j.Type).Msg("job run insert failed")
	}

	runCtx := ctx
	if runID != "" {
		runCtx = requestctx.WithJobRunID(runCtx, runID)
		runCtx = logger.WithFields(runCtx, map[string]any{"job_run_id": runID, "job_type": j.Type})
	}
	details, runErr := runRecovered(runCtx, j)
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		log.Warn().Err(marshalErr).Str("job_type", j.Type).Msg("job details marshal failed")
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if err := s.store.UpdateJobRun(context.WithoutCancel(ctx), runID, status, detailsJSON); err != nil {
			log.Warn().Err(err).Str("job_type", j.Type).Str("run_id", runID).Msg("job run update failed")
		}
	}
	log.Info().Str("job_type", j.Type).Str("run_id", runID).Str("status", status).Msg("job run finished")
	return details, runErr
}

func runRecovered(ctx context.Context, j job) (details any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("job_type", j.Type).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
			err = fmt.Errorf("%w: %v", ErrJobPanicked, rec)
			details = map[string]string{"error": err.Error()}
		}
	}()
	return j.Run(ctx)
}
