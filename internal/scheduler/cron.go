package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/controllers"
	"github.com/infieldfly/infieldfly/internal/services/episodedb"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	engine   *controllers.Engine
	episodes *episodedb.Database
	logger   *logrus.Logger

	// mu keeps cycles strictly sequential; a slow conversion must never
	// overlap the next scheduled pass
	mu sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(engine *controllers.Engine, episodes *episodedb.Database, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		engine:   engine,
		episodes: episodes,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 30 minutes: run one pipeline cycle
	_, err := s.cron.AddFunc("*/30 * * * *", func() {
		s.runCycle()
	})
	if err != nil {
		return fmt.Errorf("failed to add pipeline job: %w", err)
	}

	// Daily at 06:00: refresh episode metadata for ongoing series
	_, err = s.cron.AddFunc("0 6 * * *", func() {
		s.runMetadataUpdate()
	})
	if err != nil {
		return fmt.Errorf("failed to add metadata job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run an initial metadata refresh and cycle immediately
	go func() {
		s.runMetadataUpdate()
		s.runCycle()
	}()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Running scheduled pipeline cycle")
	if err := s.engine.RunCycle(context.Background(), controllers.CycleOptions{}); err != nil {
		s.logger.WithError(err).Error("Pipeline cycle reported errors")
	}
}

func (s *Scheduler) runMetadataUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Running scheduled metadata update")
	if err := s.episodes.UpdateAll(context.Background(), false); err != nil {
		s.logger.WithError(err).Error("Metadata update failed")
	}
}
