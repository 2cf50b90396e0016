package models

import "time"

// Channel is the outbound medium a campaign sends through.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether the channel is a known value.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp
}

// CampaignStatus is the dispatch state of a campaign.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusScheduled CampaignStatus = "scheduled"
	StatusLive      CampaignStatus = "live"
	StatusCompleted CampaignStatus = "completed"
	StatusFailed    CampaignStatus = "failed"
)

// TemplateSnapshot is the template content frozen at campaign creation.
// Later template edits never alter in-flight or historical campaigns.
type TemplateSnapshot struct {
	Subject   string `json:"subject,omitempty"`
	Heading   string `json:"heading,omitempty"`
	Message   string `json:"message"`
	ImagePath string `json:"image_path,omitempty"`
}

// Campaign is a single bulk-send job binding one template snapshot,
// one channel, and a fixed recipient list.
type Campaign struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id"`
	Name         string           `json:"name"`
	Channel      Channel          `json:"channel"`
	Template     TemplateSnapshot `json:"template"`
	RecipientIDs []string         `json:"recipient_ids"`
	Status       CampaignStatus   `json:"status"`
	SentCount    int              `json:"sent_count"`
	FailedCount  int              `json:"failed_count"`
	ScheduledAt  *time.Time       `json:"scheduled_at,omitempty"`
	SentAt       *time.Time       `json:"sent_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
