// Package scheduler runs the daily prize summary and periodic gauge refreshes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aimd54/mystery-box/internal/config"
	prommetrics "github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// gaugeRefreshSchedule keeps the claim status and outbox gauges fresh between scrapes.
const gaugeRefreshSchedule = "@every 1m"

// SummaryProvider interface for the claim read side.
type SummaryProvider interface {
	DailySummary(day time.Time) (*claims.Summary, error)
	RefreshStatusGauges() error
}

// Notifier queues an outbound alert.
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) error
}

// QueueMonitor reports outbox depth. Depth also publishes the gauges.
type QueueMonitor interface {
	Depth(ctx context.Context) (notify.Depth, error)
}

// Service handles scheduled jobs.
type Service struct {
	config   *config.SchedulerConfig
	claims   SummaryProvider
	notifier Notifier
	queue    QueueMonitor
	log      *logger.Logger
	cron     *cron.Cron
	location *time.Location
	now      func() time.Time
}

// NewService creates a new scheduler service. queue may be nil.
func NewService(
	cfg *config.SchedulerConfig,
	summaries SummaryProvider,
	notifier Notifier,
	queue QueueMonitor,
	log *logger.Logger,
) *Service {
	return &Service{
		config:   cfg,
		claims:   summaries,
		notifier: notifier,
		queue:    queue,
		log:      log,
		location: time.UTC,
		now:      time.Now,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}
	s.location = location

	if _, err := cron.ParseStandard(s.config.DailySummaryCron); err != nil {
		return fmt.Errorf("invalid daily summary schedule %q: %w", s.config.DailySummaryCron, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if _, err := s.cron.AddFunc(s.config.DailySummaryCron, func() {
		// RunDailySummary logs and counts its own failures.
		_ = s.RunDailySummary(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register daily summary job: %w", err)
	}

	if _, err := s.cron.AddFunc(gaugeRefreshSchedule, func() {
		s.refreshGauges(context.Background())
	}); err != nil {
		return fmt.Errorf("failed to register gauge refresh job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", s.config.DailySummaryCron).
		Str("timezone", s.config.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// RunDailySummary counts the day's activity and queues the summary alert.
func (s *Service) RunDailySummary(ctx context.Context) error {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun()
	}()

	day := s.now().In(s.location)
	s.log.Info().Str("day", day.Format("2006-01-02")).Msg("Running daily summary job")

	summary, err := s.claims.DailySummary(day)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to compute daily summary")
		prommetrics.RecordSchedulerJobRun("error")
		return err
	}

	alert := notify.DailySummaryAlert(summary.Pending, summary.OpenedToday, summary.DeliveredToday, day)
	if err := s.notifier.Enqueue(ctx, alert); err != nil {
		s.log.Error().Err(err).Msg("Failed to enqueue daily summary")
		prommetrics.RecordSchedulerJobRun("error")
		prommetrics.RecordNotificationFailed("enqueue")
		return err
	}

	prommetrics.RecordSchedulerJobRun("success")

	s.log.Info().
		Int64("pending", summary.Pending).
		Int64("opened_today", summary.OpenedToday).
		Int64("delivered_today", summary.DeliveredToday).
		Dur("duration", time.Since(start)).
		Msg("Daily summary queued")

	return nil
}

func (s *Service) refreshGauges(ctx context.Context) {
	if err := s.claims.RefreshStatusGauges(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh claim status gauges")
	}
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Depth(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to read notification queue depth")
	}
}
