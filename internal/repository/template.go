package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimeshka/leadline/internal/models"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(t *models.Template) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO templates (id, owner_id, name, type, subject, heading, message, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Name, t.Type, t.Subject, t.Heading, t.Message, t.ImagePath, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) GetByID(id, ownerID string) (*models.Template, error) {
	row := r.db.QueryRow(`
		SELECT id, owner_id, name, type, subject, heading, message, image_path, created_at, updated_at
		FROM templates WHERE id = ? AND owner_id = ?`, id, ownerID)

	return scanTemplate(row)
}

func (r *TemplateRepository) List(ownerID string) ([]models.Template, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, name, type, subject, heading, message, image_path, created_at, updated_at
		FROM templates WHERE owner_id = ?
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Update(t *models.Template) error {
	t.UpdatedAt = time.Now()

	_, err := r.db.Exec(`
		UPDATE templates SET name = ?, type = ?, subject = ?, heading = ?, message = ?, image_path = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		t.Name, t.Type, t.Subject, t.Heading, t.Message, t.ImagePath, t.UpdatedAt, t.ID, t.OwnerID,
	)
	return err
}

func (r *TemplateRepository) Delete(id, ownerID string) error {
	_, err := r.db.Exec(`DELETE FROM templates WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	t := &models.Template{}
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Type, &t.Subject, &t.Heading, &t.Message, &t.ImagePath,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
