package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nimeshka/leadline/internal/dispatch"
	"github.com/nimeshka/leadline/internal/metrics"
	"github.com/nimeshka/leadline/internal/models"
)

type fakeDispatcher struct {
	runs []string
	errs map[string]error
}

func (f *fakeDispatcher) StartRun(ctx context.Context, campaignID, ownerID string) (*dispatch.RunResult, error) {
	f.runs = append(f.runs, campaignID)
	if err, ok := f.errs[campaignID]; ok {
		return nil, err
	}
	return &dispatch.RunResult{CampaignID: campaignID, Status: models.StatusCompleted}, nil
}

type fakeLister struct {
	campaigns []models.Campaign
	failed    []string
}

func (f *fakeLister) ListScheduled() ([]models.Campaign, error) {
	return f.campaigns, nil
}

func (f *fakeLister) MarkFailed(id string) error {
	f.failed = append(f.failed, id)
	return nil
}

func scheduledCampaign(id string, at time.Time) models.Campaign {
	return models.Campaign{
		ID:          id,
		OwnerID:     "owner-1",
		Status:      models.StatusScheduled,
		ScheduledAt: &at,
	}
}

func newTestScheduler(dispatcher *fakeDispatcher, lister *fakeLister, now time.Time) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(dispatcher, lister, metrics.New(), Config{PollInterval: time.Minute}, logger)
	s.now = func() time.Time { return now }
	return s
}

func TestPollFiresDueCampaigns(t *testing.T) {
	now := time.Now()
	dispatcher := &fakeDispatcher{}
	lister := &fakeLister{campaigns: []models.Campaign{
		scheduledCampaign("due-now", now),
		scheduledCampaign("due-30s", now.Add(-30*time.Second)),
		scheduledCampaign("future", now.Add(30*time.Second)),
		scheduledCampaign("stale", now.Add(-2*time.Minute)),
	}}

	s := newTestScheduler(dispatcher, lister, now)
	s.poll()

	if len(dispatcher.runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %v", len(dispatcher.runs), dispatcher.runs)
	}
	fired := map[string]bool{}
	for _, id := range dispatcher.runs {
		fired[id] = true
	}
	if !fired["due-now"] || !fired["due-30s"] {
		t.Errorf("expected due-now and due-30s to fire, got %v", dispatcher.runs)
	}
}

func TestPollContainsFailures(t *testing.T) {
	now := time.Now()
	dispatcher := &fakeDispatcher{errs: map[string]error{
		"broken": errors.New("smtp exploded"),
	}}
	lister := &fakeLister{campaigns: []models.Campaign{
		scheduledCampaign("broken", now.Add(-10*time.Second)),
		scheduledCampaign("healthy", now.Add(-20*time.Second)),
	}}

	s := newTestScheduler(dispatcher, lister, now)
	s.poll()

	if len(dispatcher.runs) != 2 {
		t.Fatalf("a failed campaign must not stop the pass, got runs %v", dispatcher.runs)
	}
	if len(lister.failed) != 1 || lister.failed[0] != "broken" {
		t.Errorf("expected broken to be marked failed, got %v", lister.failed)
	}
}

func TestPollSkipsAlreadyRunning(t *testing.T) {
	now := time.Now()
	dispatcher := &fakeDispatcher{errs: map[string]error{
		"racing": dispatch.ErrAlreadyRunning,
	}}
	lister := &fakeLister{campaigns: []models.Campaign{
		scheduledCampaign("racing", now.Add(-5*time.Second)),
	}}

	s := newTestScheduler(dispatcher, lister, now)
	s.poll()

	if len(lister.failed) != 0 {
		t.Errorf("a lost race is not a failure, got %v", lister.failed)
	}
}

func TestIsDueWindow(t *testing.T) {
	now := time.Now()
	s := newTestScheduler(&fakeDispatcher{}, &fakeLister{}, now)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exactly now", now, true},
		{"30s ago", now.Add(-30 * time.Second), true},
		{"59s ago", now.Add(-59 * time.Second), true},
		{"one interval ago", now.Add(-time.Minute), false},
		{"in the future", now.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := scheduledCampaign("c", tt.at)
			if got := s.isDue(&c, now); got != tt.want {
				t.Errorf("isDue(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(&fakeDispatcher{}, &fakeLister{}, time.Now())
	s.Start()
	s.Stop()
}
