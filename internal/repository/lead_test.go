package repository

import (
	"testing"
)

func TestLeadGetByIDsPreservesOrder(t *testing.T) {
	sqlDB := setupTestDB(t)
	owner := createTestUser(t, sqlDB)
	repo := NewLeadRepository(sqlDB)

	a := createTestLead(t, sqlDB, owner.ID, "Alpha Bakery")
	b := createTestLead(t, sqlDB, owner.ID, "Beta Motors")
	c := createTestLead(t, sqlDB, owner.ID, "Gamma Salon")

	leads, err := repo.GetByIDs([]string{c.ID, a.ID, b.ID}, owner.ID)
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(leads))
	}
	want := []string{"Gamma Salon", "Alpha Bakery", "Beta Motors"}
	for i, name := range want {
		if leads[i].BusinessName != name {
			t.Errorf("position %d: expected %q, got %q", i, name, leads[i].BusinessName)
		}
	}
}

func TestLeadGetByIDsDropsMissing(t *testing.T) {
	sqlDB := setupTestDB(t)
	owner := createTestUser(t, sqlDB)
	repo := NewLeadRepository(sqlDB)

	a := createTestLead(t, sqlDB, owner.ID, "Alpha Bakery")

	leads, err := repo.GetByIDs([]string{a.ID, "deleted-lead"}, owner.ID)
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	if leads[0].ID != a.ID {
		t.Errorf("expected %s, got %s", a.ID, leads[0].ID)
	}
}

func TestLeadGetByIDsEmpty(t *testing.T) {
	sqlDB := setupTestDB(t)
	owner := createTestUser(t, sqlDB)
	repo := NewLeadRepository(sqlDB)

	leads, err := repo.GetByIDs(nil, owner.ID)
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("expected no leads, got %d", len(leads))
	}
}

func TestLeadOwnerScoping(t *testing.T) {
	sqlDB := setupTestDB(t)
	owner := createTestUser(t, sqlDB)
	repo := NewLeadRepository(sqlDB)

	l := createTestLead(t, sqlDB, owner.ID, "Alpha Bakery")

	leads, err := repo.GetByIDs([]string{l.ID}, "other-owner")
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(leads) != 0 {
		t.Error("expected no leads for a different owner")
	}
}

func TestLeadUpdate(t *testing.T) {
	sqlDB := setupTestDB(t)
	owner := createTestUser(t, sqlDB)
	repo := NewLeadRepository(sqlDB)

	l := createTestLead(t, sqlDB, owner.ID, "Alpha Bakery")
	l.Phone = "+94771111111"
	l.BusinessName = "Alpha Bakery & Cafe"

	if err := repo.Update(l); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(l.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Phone != "+94771111111" || got.BusinessName != "Alpha Bakery & Cafe" {
		t.Errorf("update not persisted: %+v", got)
	}
}
