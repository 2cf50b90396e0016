package models

import "time"

// Template is an outreach message template. Subject applies to the
// email channel only; the message body may contain placeholder tokens
// such as {businessName} and {phone}.
type Template struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Type      Channel   `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Heading   string    `json:"heading,omitempty"`
	Message   string    `json:"message"`
	ImagePath string    `json:"image_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot copies the template content for embedding into a campaign.
func (t *Template) Snapshot() TemplateSnapshot {
	return TemplateSnapshot{
		Subject:   t.Subject,
		Heading:   t.Heading,
		Message:   t.Message,
		ImagePath: t.ImagePath,
	}
}
