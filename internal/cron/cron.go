package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler handles scheduled background jobs
type Scheduler struct {
	cron        *cron.Cron
	projectRepo repository.ProjectRepository
	spec        string
	logger      *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(projectRepo repository.ProjectRepository, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		projectRepo: projectRepo,
		spec:        spec,
		logger:      logger,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.recomputeProjectProgress()
	}); err != nil {
		return fmt.Errorf("invalid progress recompute schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started", zap.String("progress_spec", s.spec))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}

// recomputeProjectProgress reconciles each project's cached progress with its
// task table. This job repairs drift after crashes or manual data fixes.
func (s *Scheduler) recomputeProjectProgress() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	updated, err := s.projectRepo.RecomputeProgress(ctx)
	if err != nil {
		s.logger.Error("progress recompute failed", zap.Error(err))
		return
	}
	s.logger.Info("progress recompute finished",
		zap.Int("projects_updated", updated),
		zap.Duration("took", time.Since(start)))
}
