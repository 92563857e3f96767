package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"allocdash/internal/errors"
	"allocdash/internal/infrastructure"
	"allocdash/internal/services"
)

// ReloadTriggerSchedule labels reloads started by the cron schedule
const ReloadTriggerSchedule = "schedule"

// Reloader drops and re-reads the cached workbooks
type Reloader interface {
	Reload(ctx context.Context, trigger string) services.ReloadResult
	Warm(ctx context.Context) error
}

// ReloadScheduler reloads the workbooks on a cron schedule. A scheduler
// built from an empty schedule is disabled and its Start and Stop do nothing.
type ReloadScheduler struct {
	cron     *cron.Cron
	schedule string
	reloader Reloader
	logger   *slog.Logger
}

// NewReloadScheduler parses schedule, a cron expression with a seconds field
func NewReloadScheduler(schedule string, reloader Reloader, logger *slog.Logger) (*ReloadScheduler, error) {
	s := &ReloadScheduler{
		schedule: schedule,
		reloader: reloader,
		logger:   logger.With(slog.String("component", "reload_scheduler")),
	}
	if schedule == "" {
		return s, nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(schedule, s.reload); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid reload schedule %q", schedule), err)
	}
	s.cron = c
	return s, nil
}

// Enabled reports whether a schedule is configured
func (s *ReloadScheduler) Enabled() bool {
	return s.cron != nil
}

// Start begins running the schedule
func (s *ReloadScheduler) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("reload schedule started", slog.String("schedule", s.schedule))
}

// Stop halts the schedule and waits for a running reload, or for ctx
func (s *ReloadScheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("reload still running at shutdown")
	}
}

func (s *ReloadScheduler) reload() {
	ctx := infrastructure.EnsureTraceID(context.Background())
	result := s.reloader.Reload(ctx, ReloadTriggerSchedule)
	if err := s.reloader.Warm(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduled reload left workbooks unloaded",
			slog.Int("evicted", result.Evicted),
			slog.String("error", err.Error()))
	}
}
