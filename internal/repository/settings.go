package repository

import (
	"database/sql"
	"time"

	"github.com/nimeshka/leadline/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSMTP returns the owner's SMTP settings, or nil when the channel has
// never been configured.
func (r *SettingsRepository) GetSMTP(ownerID string) (*models.SMTPSettings, error) {
	s := &models.SMTPSettings{}
	err := r.db.QueryRow(`
		SELECT owner_id, host, port, username, password, from_email, from_name, implicit_tls, updated_at
		FROM smtp_settings WHERE owner_id = ?`, ownerID).Scan(
		&s.OwnerID, &s.Host, &s.Port, &s.Username, &s.Password,
		&s.FromEmail, &s.FromName, &s.ImplicitTLS, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpsertSMTP stores the owner's SMTP settings, replacing any previous row.
func (r *SettingsRepository) UpsertSMTP(s *models.SMTPSettings) error {
	s.UpdatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO smtp_settings (owner_id, host, port, username, password, from_email, from_name, implicit_tls, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			host = excluded.host,
			port = excluded.port,
			username = excluded.username,
			password = excluded.password,
			from_email = excluded.from_email,
			from_name = excluded.from_name,
			implicit_tls = excluded.implicit_tls,
			updated_at = excluded.updated_at`,
		s.OwnerID, s.Host, s.Port, s.Username, s.Password,
		s.FromEmail, s.FromName, s.ImplicitTLS, s.UpdatedAt,
	)
	return err
}
