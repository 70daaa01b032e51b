package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/metrics"
)

const (
	defaultInterval   = 15 * time.Minute
	defaultJobTimeout = 5 * time.Minute
)

type jobObserver interface {
	ObserveJob(job, outcome string, took time.Duration)
	IncSkipped()
}

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    jobObserver
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// distributed lock. A cycle whose lock is held elsewhere is skipped.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	observer   jobObserver
	interval   time.Duration
	jobTimeout time.Duration
}

// CycleReport summarises one cycle.
type CycleReport struct {
	Skipped bool
	Ran     int
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron service: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron service: lock required")
	case params.Registry == nil || params.Registry.Len() == 0:
		return nil, errors.New("cron service: at least one job required")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		observer:   params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = defaultJobTimeout
	}
	if svc.observer == nil {
		svc.observer = (*metrics.CronMetrics)(nil)
	}
	return svc, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"interval":    s.interval.String(),
		"job_timeout": s.jobTimeout.String(),
	})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce acquires the lock and runs each job in turn. Job failures are
// combined into the returned error; one failing job never stops the rest.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("cron lock acquire: %w", err)
	}
	if !acquired {
		report.Skipped = true
		s.observer.IncSkipped()
		s.logg.Info(ctx, "cron.cycle_skipped")
		return report, nil
	}
	defer func() {
		// the cycle ctx may already be canceled on shutdown
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(ctx, "cron lock release failed: "+err.Error())
		}
	}()

	var errs error
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		report.Ran++
		if err := s.runJob(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"ran":    report.Ran,
		"failed": len(report.Failed),
	}), "cron.cycle")
	return report, errs
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", job.Name()), s.jobTimeout)
	defer cancel()

	started := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(started)

	outcome := metrics.JobSucceeded
	switch {
	case err == nil:
	case errors.Is(jobCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		outcome = metrics.JobTimedOut
	default:
		outcome = metrics.JobFailed
	}
	s.observer.ObserveJob(job.Name(), outcome, took)

	logCtx := s.logg.WithFields(jobCtx, map[string]any{
		"outcome":     outcome,
		"duration_ms": took.Milliseconds(),
	})
	if err != nil {
		s.logg.Error(logCtx, "cron.job", err)
		return err
	}
	s.logg.Info(logCtx, "cron.job")
	return nil
}
