package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimeshka/leadline/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, owner_id, name, channel,
	template_subject, template_heading, template_message, template_image_path,
	recipient_ids, status, sent_count, failed_count,
	scheduled_at, sent_at, created_at, updated_at`

// Create creates a new campaign in draft status.
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.Status = models.StatusDraft
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	recipients, err := json.Marshal(c.RecipientIDs)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO campaigns (id, owner_id, name, channel,
			template_subject, template_heading, template_message, template_image_path,
			recipient_ids, status, sent_count, failed_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Channel,
		c.Template.Subject, c.Template.Heading, c.Template.Message, c.Template.ImagePath,
		string(recipients), c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetByID returns an owner's campaign by ID, or nil when not found.
func (r *CampaignRepository) GetByID(id, ownerID string) (*models.Campaign, error) {
	row := r.db.QueryRow(`
		SELECT `+campaignColumns+`
		FROM campaigns WHERE id = ? AND owner_id = ?`, id, ownerID)

	return scanCampaign(row)
}

// List returns all campaigns for an owner, newest first.
func (r *CampaignRepository) List(ownerID string) ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT `+campaignColumns+`
		FROM campaigns WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// ListScheduled returns campaigns awaiting a scheduled run.
func (r *CampaignRepository) ListScheduled() ([]models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at IS NOT NULL
		ORDER BY scheduled_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// MarkLive atomically transitions a draft or scheduled campaign to live.
// Returns false when the campaign was not in a runnable state, which is
// how a second concurrent trigger loses the race without side effects.
func (r *CampaignRepository) MarkLive(id, ownerID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE campaigns SET status = 'live', updated_at = ?
		WHERE id = ? AND owner_id = ? AND status IN ('draft', 'scheduled')`,
		time.Now(), id, ownerID,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Schedule stores the absolute dispatch instant on a draft campaign.
// Returns false when the campaign was not in draft.
func (r *CampaignRepository) Schedule(id, ownerID string, at time.Time) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE campaigns SET status = 'scheduled', scheduled_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status = 'draft'`,
		at, time.Now(), id, ownerID,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// FinishRun records the terminal outcome of a dispatch run.
func (r *CampaignRepository) FinishRun(id string, sent, failed int, status models.CampaignStatus, sentAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = ?, sent_count = ?, failed_count = ?, sent_at = ?, updated_at = ?
		WHERE id = ?`,
		status, sent, failed, sentAt, time.Now(), id,
	)
	return err
}

// MarkFailed marks a campaign failed without touching its counts.
func (r *CampaignRepository) MarkFailed(id string) error {
	_, err := r.db.Exec(`
		UPDATE campaigns SET status = 'failed', updated_at = ?
		WHERE id = ? AND status IN ('live', 'scheduled')`,
		time.Now(), id,
	)
	return err
}

// Delete removes a campaign. Deletion of a live campaign is rejected so
// an in-flight run never loses its record mid-loop.
func (r *CampaignRepository) Delete(id, ownerID string) error {
	res, err := r.db.Exec(`
		DELETE FROM campaigns WHERE id = ? AND owner_id = ? AND status != 'live'`,
		id, ownerID,
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		live, err := r.GetByID(id, ownerID)
		if err != nil {
			return err
		}
		if live != nil {
			return fmt.Errorf("campaign %s has a run in flight", id)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	var recipients string
	var scheduledAt, sentAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Channel,
		&c.Template.Subject, &c.Template.Heading, &c.Template.Message, &c.Template.ImagePath,
		&recipients, &c.Status, &c.SentCount, &c.FailedCount,
		&scheduledAt, &sentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recipients), &c.RecipientIDs); err != nil {
		return nil, fmt.Errorf("failed to decode recipients: %w", err)
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	return c, nil
}

func collectCampaigns(rows *sql.Rows) ([]models.Campaign, error) {
	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}
