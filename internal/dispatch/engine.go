// Package dispatch runs campaigns: it claims the campaign, resolves
// recipients, renders and sends each message with a randomized pause in
// between, and records the terminal outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

// CampaignStore is the campaign persistence the engine needs.
type CampaignStore interface {
	GetByID(id, ownerID string) (*models.Campaign, error)
	MarkLive(id, ownerID string) (bool, error)
	MarkFailed(id string) error
	Schedule(id, ownerID string, at time.Time) (bool, error)
	FinishRun(id string, sent, failed int, status models.CampaignStatus, sentAt time.Time) error
}

// LeadStore resolves campaign recipient IDs into leads.
type LeadStore interface {
	GetByIDs(ids []string, ownerID string) ([]models.Lead, error)
}

// SettingsStore provides per-owner channel configuration.
type SettingsStore interface {
	GetSMTP(ownerID string) (*models.SMTPSettings, error)
}

// StatsRecorder counts successful sends.
type StatsRecorder interface {
	RecordSend(ownerID string, ch models.Channel, day time.Time)
}

// EmailSenderFactory builds an email sender from owner SMTP settings.
type EmailSenderFactory interface {
	SenderFor(cfg *models.SMTPSettings) channel.Sender
}

// RecipientError describes one failed recipient in a run.
type RecipientError struct {
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RunResult is the outcome of a finished campaign run.
type RunResult struct {
	CampaignID string                `json:"campaign_id"`
	Status     models.CampaignStatus `json:"status"`
	Sent       int                   `json:"sent"`
	Failed     int                   `json:"failed"`
	Errors     []RecipientError      `json:"errors,omitempty"`
}

// Config holds dispatch engine settings.
type Config struct {
	MinSendDelay  time.Duration
	MaxSendDelay  time.Duration
	VerifyTimeout time.Duration
}

// Engine executes campaign runs. One engine serves all owners; the
// per-run channel sender is resolved from owner settings at run time.
type Engine struct {
	campaigns CampaignStore
	leads     LeadStore
	settings  SettingsStore
	stats     StatsRecorder
	emails    EmailSenderFactory
	whatsapp  channel.Sender
	metrics   *metrics.Metrics
	logger    *slog.Logger

	minDelay      time.Duration
	maxDelay      time.Duration
	verifyTimeout time.Duration

	// Injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewEngine creates a dispatch engine. whatsapp may be nil when no
// gateway is configured; email is always resolved per owner.
func NewEngine(
	campaigns CampaignStore,
	leads LeadStore,
	settings SettingsStore,
	stats StatsRecorder,
	emails EmailSenderFactory,
	whatsapp channel.Sender,
	m *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if cfg.MinSendDelay == 0 {
		cfg.MinSendDelay = 5 * time.Second
	}
	if cfg.MaxSendDelay < cfg.MinSendDelay {
		cfg.MaxSendDelay = cfg.MinSendDelay
	}
	if cfg.VerifyTimeout == 0 {
		cfg.VerifyTimeout = 10 * time.Second
	}

	return &Engine{
		campaigns:     campaigns,
		leads:         leads,
		settings:      settings,
		stats:         stats,
		emails:        emails,
		whatsapp:      whatsapp,
		metrics:       m,
		logger:        logger.With("component", "dispatch"),
		minDelay:      cfg.MinSendDelay,
		maxDelay:      cfg.MaxSendDelay,
		verifyTimeout: cfg.VerifyTimeout,
		sleep:         sleepCtx,
		now:           time.Now,
	}
}

// StartRun executes a campaign end to end. The campaign is claimed with
// an atomic status flip before any other I/O so a concurrent second
// trigger finds it already live and rejects. Precondition failures after
// the claim (no recipients, channel unusable) mark the campaign failed
// without send attempts; once the send loop starts, it always finishes
// with sent+failed equal to the number of resolved recipients.
func (e *Engine) StartRun(ctx context.Context, campaignID, ownerID string) (*RunResult, error) {
	c, err := e.campaigns.GetByID(campaignID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}

	claimed, err := e.campaigns.MarkLive(c.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim campaign: %w", err)
	}
	if !claimed {
		current, err := e.campaigns.GetByID(c.ID, ownerID)
		if err == nil && current != nil && current.Status == models.StatusLive {
			return nil, ErrAlreadyRunning
		}
		return nil, ErrInvalidState
	}

	leads, err := e.leads.GetByIDs(c.RecipientIDs, ownerID)
	if err != nil {
		return nil, e.abort(c, fmt.Errorf("failed to resolve recipients: %w", err))
	}
	if len(leads) == 0 {
		return nil, e.abort(c, ErrNoRecipients)
	}

	sender, err := e.senderFor(c)
	if err != nil {
		return nil, e.abort(c, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.verifyTimeout)
	err = sender.Verify(verifyCtx)
	cancel()
	if err != nil {
		return nil, e.abort(c, fmt.Errorf("%w: %v", ErrChannelNotConnected, err))
	}

	e.logger.Info("campaign run started",
		"campaign_id", c.ID, "channel", c.Channel, "recipients", len(leads))

	return e.run(ctx, c, leads, sender)
}

// abort marks a claimed campaign failed before any send attempt and
// returns the precondition error that caused it.
func (e *Engine) abort(c *models.Campaign, cause error) error {
	e.logger.Warn("campaign run aborted",
		"campaign_id", c.ID, "channel", c.Channel, "error", cause)

	if err := e.campaigns.MarkFailed(c.ID); err != nil {
		e.logger.Error("failed to mark campaign failed", "campaign_id", c.ID, "error", err)
	}
	e.metrics.CampaignRunsTotal.WithLabelValues(string(models.StatusFailed)).Inc()
	return cause
}

// ScheduleRun stores a future dispatch time on a draft campaign.
func (e *Engine) ScheduleRun(campaignID, ownerID string, at time.Time) error {
	c, err := e.campaigns.GetByID(campaignID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}
	if c == nil {
		return ErrNotFound
	}

	if !at.After(e.now()) {
		return ErrInvalidScheduleTime
	}

	ok, err := e.campaigns.Schedule(campaignID, ownerID, at)
	if err != nil {
		return fmt.Errorf("failed to schedule campaign: %w", err)
	}
	if !ok {
		return ErrInvalidState
	}

	e.logger.Info("campaign scheduled", "campaign_id", campaignID, "scheduled_at", at)
	return nil
}

// senderFor resolves the channel sender for a campaign.
func (e *Engine) senderFor(c *models.Campaign) (channel.Sender, error) {
	switch c.Channel {
	case models.ChannelEmail:
		cfg, err := e.settings.GetSMTP(c.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load smtp settings: %w", err)
		}
		if cfg == nil {
			return nil, fmt.Errorf("%w: no smtp settings for owner", ErrChannelNotConfigured)
		}
		return e.emails.SenderFor(cfg), nil
	case models.ChannelWhatsApp:
		if e.whatsapp == nil {
			return nil, fmt.Errorf("%w: no whatsapp gateway", ErrChannelNotConfigured)
		}
		return e.whatsapp, nil
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrChannelNotConfigured, c.Channel)
	}
}

// run sends to every resolved recipient. Per-recipient failures are
// recorded and the loop continues; only context cancellation stops it.
func (e *Engine) run(ctx context.Context, c *models.Campaign, leads []models.Lead, sender channel.Sender) (*RunResult, error) {
	started := e.now()
	result := &RunResult{CampaignID: c.ID}

	for i := range leads {
		if i > 0 {
			if err := e.sleep(ctx, e.sendDelay()); err != nil {
				return e.finish(c, result, started, err)
			}
		}

		lead := &leads[i]
		if err := e.sendOne(ctx, c, lead, sender); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, recipientError(lead.ID, err))
			e.metrics.MessagesFailedTotal.WithLabelValues(string(c.Channel), failureReason(err)).Inc()
			e.logger.Warn("recipient send failed",
				"campaign_id", c.ID, "lead_id", lead.ID, "error", err)
			continue
		}

		result.Sent++
		e.stats.RecordSend(c.OwnerID, c.Channel, e.now())
		e.metrics.MessagesSentTotal.WithLabelValues(string(c.Channel)).Inc()
	}

	return e.finish(c, result, started, nil)
}

func (e *Engine) sendOne(ctx context.Context, c *models.Campaign, lead *models.Lead, sender channel.Sender) error {
	msg, err := render.Render(&c.Template, lead)
	if err != nil {
		return err
	}
	return sender.Send(ctx, lead, msg, c.Template.ImagePath)
}

// finish records the terminal outcome. A run that processed its full
// recipient list completes, even when every individual send failed; an
// interrupted run is failed with the counts accumulated so far.
func (e *Engine) finish(c *models.Campaign, result *RunResult, started time.Time, runErr error) (*RunResult, error) {
	status := models.StatusCompleted
	if runErr != nil {
		status = models.StatusFailed
	}
	result.Status = status

	sentAt := e.now()
	if err := e.campaigns.FinishRun(c.ID, result.Sent, result.Failed, status, sentAt); err != nil {
		e.logger.Error("failed to record run outcome", "campaign_id", c.ID, "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	e.metrics.CampaignRunsTotal.WithLabelValues(string(status)).Inc()
	e.metrics.CampaignRunSeconds.WithLabelValues(string(c.Channel)).Observe(sentAt.Sub(started).Seconds())

	e.logger.Info("campaign run finished",
		"campaign_id", c.ID, "status", status,
		"sent", result.Sent, "failed", result.Failed)

	if runErr != nil {
		return result, fmt.Errorf("campaign run interrupted: %w", runErr)
	}
	return result, nil
}

// sendDelay picks a random pause between consecutive sends.
func (e *Engine) sendDelay() time.Duration {
	jitter := e.maxDelay - e.minDelay
	if jitter <= 0 {
		return e.minDelay
	}
	return e.minDelay + rand.N(jitter)
}

func recipientError(leadID string, err error) RecipientError {
	return RecipientError{
		LeadID: leadID,
		Reason: failureReason(err),
		Detail: err.Error(),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, render.ErrEmptyMessage):
		return ReasonEmptyMessage
	case errors.Is(err, channel.ErrInvalidRecipient):
		return ReasonInvalidRecipient
	default:
		return ReasonSendError
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
