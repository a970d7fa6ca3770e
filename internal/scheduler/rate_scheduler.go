package scheduler

import (
	"context"
	"time"

	"github.com/pcforge/pcforge-backend/internal/app/service"
	"github.com/pcforge/pcforge-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 30 * time.Second

// RateScheduler refreshes the cached USD exchange rate on a cron
// schedule so storefront reads rarely miss the cache.
type RateScheduler struct {
	cron        *cron.Cron
	rateService service.RateService
	schedule    string
}

func NewRateScheduler(rateService service.RateService, schedule string) *RateScheduler {
	return &RateScheduler{
		cron:        cron.New(),
		rateService: rateService,
		schedule:    schedule,
	}
}

// Start registers the refresh job and runs one refresh immediately so
// the cache is warm from boot.
func (s *RateScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.refresh()
	})
	if err != nil {
		logger.Error("Failed to add cron job for rate refresh", err)
		return err
	}

	s.cron.Start()
	logger.Info("Rate scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})

	go s.refresh()
	return nil
}

func (s *RateScheduler) refresh() {
	logger.Info("Starting scheduled rate refresh", nil)

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.rateService.RefreshDollarRate(ctx); err != nil {
		logger.Error("Scheduled rate refresh failed", err)
		return
	}

	logger.Info("Scheduled rate refresh completed", nil)
}

// Stop halts the scheduler
func (s *RateScheduler) Stop() {
	logger.Info("Stopping rate scheduler...", nil)
	s.cron.Stop()
	logger.Info("Rate scheduler stopped", nil)
}
