package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nimeshka/leadline/internal/db"
	"github.com/nimeshka/leadline/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	testDB := &db.DB{DB: sqlDB}
	if err := testDB.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return sqlDB
}

func createTestUser(t *testing.T, sqlDB *sql.DB) *models.User {
	t.Helper()

	users := NewUserRepository(sqlDB)
	u, err := users.Create("owner@example.com", "Owner", "secret123")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestLead(t *testing.T, sqlDB *sql.DB, ownerID, name string) *models.Lead {
	t.Helper()

	leads := NewLeadRepository(sqlDB)
	l := &models.Lead{
		OwnerID:      ownerID,
		BusinessName: name,
		Phone:        "0771234567",
		Email:        "contact@example.com",
		Country:      "Sri Lanka",
	}
	if err := leads.Create(l); err != nil {
		t.Fatalf("failed to create test lead: %v", err)
	}
	return l
}
