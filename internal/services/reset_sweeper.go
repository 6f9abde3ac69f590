package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/you/accountsvc/domain"
)

// ResetSweeper periodically clears reset mirrors whose expiry has passed
type ResetSweeper struct {
	repo domain.AccountRepository
	cron *cron.Cron
	now  func() time.Time
	log  *slog.Logger
}

// NewResetSweeper schedules the sweep with a cron spec such as "@every 1h" or "0 * * * *"
func NewResetSweeper(repo domain.AccountRepository, schedule string, log *slog.Logger) (*ResetSweeper, error) {
	s := &ResetSweeper{
		repo: repo,
		cron: cron.New(),
		now:  time.Now,
		log:  log,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid reset sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *ResetSweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *ResetSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep clears expired reset mirrors once and returns how many accounts changed
func (s *ResetSweeper) Sweep(ctx context.Context) int64 {
	cleared, err := s.repo.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		s.log.ErrorContext(ctx, "reset token sweep failed", slog.Any("error", err))
		return 0
	}
	if cleared > 0 {
		s.log.InfoContext(ctx, "expired reset tokens cleared", slog.Int64("count", cleared))
	}
	return cleared
}
