package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/rag"
)

// CronService runs the periodic background jobs: index snapshotting and
// the daily recommendation batch.
type CronService struct {
	scheduler   *gocron.Scheduler
	ctx         context.Context
	cancel      context.CancelFunc
	system      *rag.System
	recommender *Recommender
	cfg         *config.Config
}

func NewCronService(cfg *config.Config, system *rag.System, recommender *Recommender) *CronService {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &CronService{
		scheduler:   s,
		ctx:         ctx,
		cancel:      cancel,
		system:      system,
		recommender: recommender,
		cfg:         cfg,
	}
}

// Start registers the jobs and runs the scheduler in the background.
func (c *CronService) Start() error {
	interval := time.Duration(c.cfg.SnapshotIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := c.scheduler.Every(interval).Tag("index-snapshot").Do(c.snapshotIndex)
	if err != nil {
		return err
	}

	_, err = c.scheduler.Cron(c.cfg.RecommendationCron).Tag("daily-recommendations").Do(c.runDailyRecommendations)
	if err != nil {
		return err
	}

	c.scheduler.StartAsync()
	logger.Info("Cron service started",
		"snapshot_interval", interval.String(),
		"recommendation_cron", c.cfg.RecommendationCron)
	return nil
}

// Stop stops the scheduler and cancels in-flight jobs.
func (c *CronService) Stop() {
	c.scheduler.Stop()
	if c.cancel != nil {
		c.cancel()
	}
	logger.Info("Cron service stopped")
}

func (c *CronService) snapshotIndex() {
	c.system.Snapshot()
	logger.Debug("Index snapshot written", "path", c.cfg.SnapshotFile)
}

func (c *CronService) runDailyRecommendations() {
	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Minute)
	defer cancel()

	c.recommender.GenerateForAllProfiles(ctx)
}
