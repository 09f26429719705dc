package deploy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"deployd/internal/platform/config"
	"deployd/internal/platform/models"
)

// ErrInProgress is returned when an app is triggered while a deploy
// for the same app is still running.
var ErrInProgress = errors.New("deploy: already in progress")

// Service runs deploys one at a time per app and records each run in
// the history store.
type Service struct {
	runner *Runner
	repo   RunRecorder
	locks  sync.Map // app name -> *sync.Mutex
}

// RunRecorder is the slice of the repository the service needs.
type RunRecorder interface {
	Create(run *models.DeployRun) error
}

func NewService(runner *Runner, repo RunRecorder) *Service {
	return &Service{runner: runner, repo: repo}
}

// Trigger executes the app's deploy command and returns the recorded
// run. Concurrent triggers for the same app are rejected rather than
// queued: the caller already knows a deploy is underway.
func (s *Service) Trigger(ctx context.Context, app config.AppConfig, remoteAddr string) (*models.DeployRun, error) {
	muVal, _ := s.locks.LoadOrStore(app.Name, &sync.Mutex{})
	mu := muVal.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrInProgress
	}
	defer mu.Unlock()

	log.Info().Str("app", app.Name).Msg("starting deploy")
	started := time.Now()
	result := s.runner.Run(ctx, app)

	run := &models.DeployRun{
		App:        app.Name,
		Success:    result.Success,
		RemoteAddr: remoteAddr,
		StartedAt:  started.Unix(),
		DurationMs: result.Elapsed.Milliseconds(),
	}
	if result.Err != nil {
		run.Error = result.Err.Error()
	}

	if s.repo != nil {
		if err := s.repo.Create(run); err != nil {
			log.Error().Err(err).Str("app", app.Name).Msg("failed to record deploy run")
		}
	}

	if result.Success {
		log.Info().Str("app", app.Name).Float64("elapsed_s", result.Elapsed.Seconds()).Msg("deploy succeeded")
	} else {
		log.Error().Err(result.Err).Str("app", app.Name).Float64("elapsed_s", result.Elapsed.Seconds()).
			Strs("output_tail", result.Output).Msg("deploy failed")
	}

	return run, nil
}
