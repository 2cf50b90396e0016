package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nimeshka/leadline/internal/channel"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/models"
	"github.com/nimeshka/leadline/internal/render"
)

type fakeCampaignStore struct {
	campaign *models.Campaign

	markFailedCalls int
	finishStatus    models.CampaignStatus
	finishSent      int
	finishFailed    int
	finished        bool
	scheduledAt     *time.Time
}

func (f *fakeCampaignStore) GetByID(id, ownerID string) (*models.Campaign, error) {
	if f.campaign == nil || f.campaign.ID != id || f.campaign.OwnerID != ownerID {
		return nil, nil
	}
	c := *f.campaign
	return &c, nil
}

func (f *fakeCampaignStore) MarkLive(id, ownerID string) (bool, error) {
	if f.campaign == nil || f.campaign.ID != id || f.campaign.OwnerID != ownerID {
		return false, nil
	}
	if f.campaign.Status != models.StatusDraft && f.campaign.Status != models.StatusScheduled {
		return false, nil
	}
	f.campaign.Status = models.StatusLive
	return true, nil
}

func (f *fakeCampaignStore) MarkFailed(id string) error {
	f.markFailedCalls++
	f.campaign.Status = models.StatusFailed
	return nil
}

func (f *fakeCampaignStore) Schedule(id, ownerID string, at time.Time) (bool, error) {
	if f.campaign == nil || f.campaign.Status != models.StatusDraft {
		return false, nil
	}
	f.campaign.Status = models.StatusScheduled
	f.scheduledAt = &at
	return true, nil
}

func (f *fakeCampaignStore) FinishRun(id string, sent, failed int, status models.CampaignStatus, sentAt time.Time) error {
	f.finished = true
	f.finishSent = sent
	f.finishFailed = failed
	f.finishStatus = status
	f.campaign.Status = status
	return nil
}

type fakeLeadStore struct {
	leads []models.Lead
}

func (f *fakeLeadStore) GetByIDs(ids []string, ownerID string) ([]models.Lead, error) {
	return f.leads, nil
}

type fakeSettingsStore struct {
	smtp *models.SMTPSettings
}

func (f *fakeSettingsStore) GetSMTP(ownerID string) (*models.SMTPSettings, error) {
	return f.smtp, nil
}

type fakeStats struct {
	sends int
}

func (f *fakeStats) RecordSend(ownerID string, ch models.Channel, day time.Time) {
	f.sends++
}

type fakeSender struct {
	verifyErr error
	sendErrs  map[string]error

	sendCalls []string
}

func (f *fakeSender) Verify(ctx context.Context) error {
	return f.verifyErr
}

func (f *fakeSender) Send(ctx context.Context, lead *models.Lead, msg *render.Message, imagePath string) error {
	f.sendCalls = append(f.sendCalls, lead.ID)
	if err, ok := f.sendErrs[lead.ID]; ok {
		return err
	}
	return nil
}

type fakeFactory struct {
	sender channel.Sender
}

func (f *fakeFactory) SenderFor(cfg *models.SMTPSettings) channel.Sender {
	return f.sender
}

type testEngine struct {
	engine    *Engine
	campaigns *fakeCampaignStore
	leads     *fakeLeadStore
	settings  *fakeSettingsStore
	stats     *fakeStats
	sender    *fakeSender
	sleeps    []time.Duration
}

func newTestEngine(t *testing.T, c *models.Campaign, leads []models.Lead) *testEngine {
	t.Helper()

	te := &testEngine{
		campaigns: &fakeCampaignStore{campaign: c},
		leads:     &fakeLeadStore{leads: leads},
		settings:  &fakeSettingsStore{smtp: &models.SMTPSettings{Host: "smtp.example.com", Port: 587, FromEmail: "from@example.com"}},
		stats:     &fakeStats{},
		sender:    &fakeSender{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	te.engine = NewEngine(
		te.campaigns, te.leads, te.settings, te.stats,
		&fakeFactory{sender: te.sender}, te.sender,
		metrics.New(),
		Config{MinSendDelay: 5 * time.Second, MaxSendDelay: 10 * time.Second},
		logger,
	)
	te.engine.sleep = func(ctx context.Context, d time.Duration) error {
		te.sleeps = append(te.sleeps, d)
		return nil
	}
	return te
}

func testCampaign(ch models.Channel, recipients ...string) *models.Campaign {
	return &models.Campaign{
		ID:      "camp-1",
		OwnerID: "owner-1",
		Name:    "launch",
		Channel: ch,
		Template: models.TemplateSnapshot{
			Subject: "Hello {businessName}",
			Message: "Hi {businessName}",
		},
		RecipientIDs: recipients,
		Status:       models.StatusDraft,
	}
}

func TestStartRunEndToEnd(t *testing.T) {
	// Lead A sends fine, lead B is rejected by the channel, lead C
	// renders to an empty message.
	leads := []models.Lead{
		{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"},
		{ID: "lead-b", OwnerID: "owner-1", BusinessName: "Beta"},
		{ID: "lead-c", OwnerID: "owner-1"},
	}
	c := testCampaign(models.ChannelWhatsApp, "lead-a", "lead-b", "lead-c")
	c.Template = models.TemplateSnapshot{Message: "{businessName}"}

	te := newTestEngine(t, c, leads)
	te.sender.sendErrs = map[string]error{
		"lead-b": channel.ErrInvalidRecipient,
	}

	result, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if result.Sent != 1 || result.Failed != 2 {
		t.Errorf("expected sent=1 failed=2, got sent=%d failed=%d", result.Sent, result.Failed)
	}
	if result.Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if got := result.Sent + result.Failed; got != len(leads) {
		t.Errorf("count invariant violated: sent+failed=%d, resolved=%d", got, len(leads))
	}
	if te.stats.sends != 1 {
		t.Errorf("expected 1 recorded send, got %d", te.stats.sends)
	}
	// Lead C never reaches the sender: rendering fails first.
	if len(te.sender.sendCalls) != 2 {
		t.Errorf("expected 2 send attempts, got %d", len(te.sender.sendCalls))
	}
	if !te.campaigns.finished || te.campaigns.finishStatus != models.StatusCompleted {
		t.Error("expected terminal status to be persisted")
	}
}

func TestStartRunDelaysBetweenSendsOnly(t *testing.T) {
	leads := []models.Lead{
		{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"},
		{ID: "lead-b", OwnerID: "owner-1", BusinessName: "Beta"},
		{ID: "lead-c", OwnerID: "owner-1", BusinessName: "Gamma"},
	}
	c := testCampaign(models.ChannelWhatsApp, "lead-a", "lead-b", "lead-c")
	te := newTestEngine(t, c, leads)

	if _, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1"); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	if len(te.sleeps) != 2 {
		t.Fatalf("expected 2 pauses for 3 recipients, got %d", len(te.sleeps))
	}
	for i, d := range te.sleeps {
		if d < 5*time.Second || d > 10*time.Second {
			t.Errorf("pause %d out of range: %v", i, d)
		}
	}
}

func TestStartRunNotFound(t *testing.T) {
	te := newTestEngine(t, testCampaign(models.ChannelEmail, "lead-a"), nil)

	_, err := te.engine.StartRun(context.Background(), "no-such-campaign", "owner-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStartRunNoRecipients(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-gone")
	te := newTestEngine(t, c, nil)

	_, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if te.campaigns.markFailedCalls != 1 {
		t.Error("expected campaign to be marked failed")
	}
	if len(te.sender.sendCalls) != 0 {
		t.Errorf("expected zero send attempts, got %d", len(te.sender.sendCalls))
	}
}

func TestStartRunChannelNotConnected(t *testing.T) {
	leads := []models.Lead{{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"}}
	c := testCampaign(models.ChannelWhatsApp, "lead-a")
	te := newTestEngine(t, c, leads)
	te.sender.verifyErr = channel.ErrNotConnected

	_, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if !errors.Is(err, ErrChannelNotConnected) {
		t.Fatalf("expected ErrChannelNotConnected, got %v", err)
	}
	if len(te.sender.sendCalls) != 0 {
		t.Errorf("expected zero send attempts, got %d", len(te.sender.sendCalls))
	}
	if te.campaigns.campaign.Status != models.StatusFailed {
		t.Errorf("expected failed status, got %s", te.campaigns.campaign.Status)
	}
	if te.campaigns.finished {
		t.Error("aborted run must not persist counts")
	}
}

func TestStartRunEmailNotConfigured(t *testing.T) {
	leads := []models.Lead{{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha", Email: "a@example.com"}}
	c := testCampaign(models.ChannelEmail, "lead-a")
	te := newTestEngine(t, c, leads)
	te.settings.smtp = nil

	_, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("expected ErrChannelNotConfigured, got %v", err)
	}
	if te.campaigns.campaign.Status != models.StatusFailed {
		t.Errorf("expected failed status, got %s", te.campaigns.campaign.Status)
	}
}

func TestStartRunAlreadyRunning(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-a")
	c.Status = models.StatusLive
	te := newTestEngine(t, c, []models.Lead{{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"}})

	_, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if len(te.sender.sendCalls) != 0 {
		t.Error("a rejected trigger must not send")
	}
}

func TestStartRunCompletedCampaignRejected(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-a")
	c.Status = models.StatusCompleted
	te := newTestEngine(t, c, []models.Lead{{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"}})

	_, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestStartRunAllFailuresStillCompletes(t *testing.T) {
	leads := []models.Lead{
		{ID: "lead-a", OwnerID: "owner-1", BusinessName: "Alpha"},
		{ID: "lead-b", OwnerID: "owner-1", BusinessName: "Beta"},
	}
	c := testCampaign(models.ChannelWhatsApp, "lead-a", "lead-b")
	te := newTestEngine(t, c, leads)
	te.sender.sendErrs = map[string]error{
		"lead-a": &channel.SendError{Recipient: "a", Err: errors.New("gateway 500")},
		"lead-b": &channel.SendError{Recipient: "b", Err: errors.New("gateway 500")},
	}

	result, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if result.Status != models.StatusCompleted {
		t.Errorf("a fully-attempted run completes even with zero sends, got %s", result.Status)
	}
	if result.Sent != 0 || result.Failed != 2 {
		t.Errorf("expected sent=0 failed=2, got sent=%d failed=%d", result.Sent, result.Failed)
	}
}

func TestStartRunRecipientErrorReasons(t *testing.T) {
	leads := []models.Lead{
		{ID: "lead-a", OwnerID: "owner-1"},
		{ID: "lead-b", OwnerID: "owner-1", BusinessName: "Beta"},
	}
	c := testCampaign(models.ChannelWhatsApp, "lead-a", "lead-b")
	c.Template = models.TemplateSnapshot{Message: "{businessName}"}
	te := newTestEngine(t, c, leads)
	te.sender.sendErrs = map[string]error{
		"lead-b": channel.ErrInvalidRecipient,
	}

	result, err := te.engine.StartRun(context.Background(), "camp-1", "owner-1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	reasons := map[string]string{}
	for _, re := range result.Errors {
		reasons[re.LeadID] = re.Reason
	}
	if reasons["lead-a"] != ReasonEmptyMessage {
		t.Errorf("lead-a: expected %s, got %s", ReasonEmptyMessage, reasons["lead-a"])
	}
	if reasons["lead-b"] != ReasonInvalidRecipient {
		t.Errorf("lead-b: expected %s, got %s", ReasonInvalidRecipient, reasons["lead-b"])
	}
}

func TestScheduleRun(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-a")
	te := newTestEngine(t, c, nil)

	at := time.Now().Add(time.Hour)
	if err := te.engine.ScheduleRun("camp-1", "owner-1", at); err != nil {
		t.Fatalf("ScheduleRun failed: %v", err)
	}
	if te.campaigns.campaign.Status != models.StatusScheduled {
		t.Errorf("expected scheduled, got %s", te.campaigns.campaign.Status)
	}
	if te.campaigns.scheduledAt == nil || !te.campaigns.scheduledAt.Equal(at) {
		t.Error("scheduled time not persisted")
	}
}

func TestScheduleRunRejectsPast(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-a")
	te := newTestEngine(t, c, nil)

	now := time.Now()
	te.engine.now = func() time.Time { return now }

	if err := te.engine.ScheduleRun("camp-1", "owner-1", now); !errors.Is(err, ErrInvalidScheduleTime) {
		t.Errorf("expected ErrInvalidScheduleTime for now, got %v", err)
	}
	if err := te.engine.ScheduleRun("camp-1", "owner-1", now.Add(-time.Minute)); !errors.Is(err, ErrInvalidScheduleTime) {
		t.Errorf("expected ErrInvalidScheduleTime for past, got %v", err)
	}
	if err := te.engine.ScheduleRun("camp-1", "owner-1", now.Add(time.Second)); err != nil {
		t.Errorf("expected one second ahead to be accepted, got %v", err)
	}
}

func TestScheduleRunDraftOnly(t *testing.T) {
	c := testCampaign(models.ChannelEmail, "lead-a")
	c.Status = models.StatusCompleted
	te := newTestEngine(t, c, nil)

	err := te.engine.ScheduleRun("camp-1", "owner-1", time.Now().Add(time.Hour))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}
