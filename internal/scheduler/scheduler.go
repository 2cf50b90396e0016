// Package scheduler polls for scheduled campaigns and hands due ones to
// the dispatch engine.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nimeshka/leadline/internal/dispatch"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/models"
)

// Dispatcher starts campaign runs.
type Dispatcher interface {
	StartRun(ctx context.Context, campaignID, ownerID string) (*dispatch.RunResult, error)
}

// CampaignLister provides the scheduled campaigns and failure marking.
type CampaignLister interface {
	ListScheduled() ([]models.Campaign, error)
	MarkFailed(id string) error
}

// Config holds scheduler settings.
type Config struct {
	PollInterval time.Duration
	Location     *time.Location
}

// Scheduler fires scheduled campaigns. A campaign is due when its
// scheduled time falls inside the window ending now and spanning one
// poll interval, so each campaign fires on exactly one pass.
type Scheduler struct {
	dispatcher Dispatcher
	campaigns  CampaignLister
	metrics    *metrics.Metrics
	logger     *slog.Logger

	interval time.Duration
	loc      *time.Location
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(dispatcher Dispatcher, campaigns CampaignLister, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		dispatcher: dispatcher,
		campaigns:  campaigns,
		metrics:    m,
		logger:     logger.With("component", "scheduler"),
		interval:   cfg.PollInterval,
		loc:        cfg.Location,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the polling loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
	s.logger.Info("scheduler started", "poll_interval", s.interval, "timezone", s.loc.String())
}

// Stop stops the polling loop and waits for an in-flight pass.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

// poll runs one pass. A failure on one campaign is contained: the
// campaign is marked failed and the pass moves to the next one.
func (s *Scheduler) poll() {
	s.metrics.SchedulerPassesTotal.Inc()

	due, err := s.campaigns.ListScheduled()
	if err != nil {
		s.logger.Error("failed to list scheduled campaigns", "error", err)
		return
	}

	now := s.now().In(s.loc)
	for _, c := range due {
		if !s.isDue(&c, now) {
			continue
		}

		s.logger.Info("dispatching scheduled campaign",
			"campaign_id", c.ID, "scheduled_at", c.ScheduledAt)

		result, err := s.dispatcher.StartRun(s.ctx, c.ID, c.OwnerID)
		if err != nil {
			if errors.Is(err, dispatch.ErrAlreadyRunning) {
				s.logger.Info("scheduled campaign already running", "campaign_id", c.ID)
				continue
			}
			s.logger.Error("scheduled campaign run failed",
				"campaign_id", c.ID, "error", err)
			if markErr := s.campaigns.MarkFailed(c.ID); markErr != nil {
				s.logger.Error("failed to mark campaign failed",
					"campaign_id", c.ID, "error", markErr)
			}
			continue
		}

		s.logger.Info("scheduled campaign finished",
			"campaign_id", c.ID, "status", result.Status,
			"sent", result.Sent, "failed", result.Failed)
	}
}

// isDue reports whether the campaign's scheduled time fell within the
// last poll interval.
func (s *Scheduler) isDue(c *models.Campaign, now time.Time) bool {
	if c.ScheduledAt == nil {
		return false
	}
	elapsed := now.Sub(c.ScheduledAt.In(s.loc))
	return elapsed >= 0 && elapsed < s.interval
}
