package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimeshka/leadline/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(l *models.Lead) error {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO leads (id, owner_id, business_name, phone, email, address, country, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.BusinessName, l.Phone, l.Email, l.Address, l.Country, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) GetByID(id, ownerID string) (*models.Lead, error) {
	row := r.db.QueryRow(`
		SELECT id, owner_id, business_name, phone, email, address, country, created_at, updated_at
		FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)

	return scanLead(row)
}

// GetByIDs resolves leads in the order the IDs are given. IDs that no
// longer exist are silently dropped.
func (r *LeadRepository) GetByIDs(ids []string, ownerID string) ([]models.Lead, error) {
	if len(ids) == 0 {
		return []models.Lead{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, ownerID)

	rows, err := r.db.Query(`
		SELECT id, owner_id, business_name, phone, email, address, country, created_at, updated_at
		FROM leads WHERE id IN (`+placeholders+`) AND owner_id = ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]models.Lead, len(ids))
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		byID[l.ID] = *l
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	leads := make([]models.Lead, 0, len(byID))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			leads = append(leads, l)
		}
	}
	return leads, nil
}

func (r *LeadRepository) List(ownerID string) ([]models.Lead, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, business_name, phone, email, address, country, created_at, updated_at
		FROM leads WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Update(l *models.Lead) error {
	l.UpdatedAt = time.Now()

	_, err := r.db.Exec(`
		UPDATE leads SET business_name = ?, phone = ?, email = ?, address = ?, country = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		l.BusinessName, l.Phone, l.Email, l.Address, l.Country, l.UpdatedAt, l.ID, l.OwnerID,
	)
	return err
}

func (r *LeadRepository) Delete(id, ownerID string) error {
	_, err := r.db.Exec(`DELETE FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

func scanLead(row rowScanner) (*models.Lead, error) {
	l := &models.Lead{}
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.BusinessName, &l.Phone, &l.Email, &l.Address, &l.Country,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
