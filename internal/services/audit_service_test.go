package services

import (
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("records_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewAuditService(db)

		svc.Log(bg, AuditEntry{
			ActorID:      7,
			Action:       models.AuditChangeRole,
			ResourceType: "user",
			ResourceID:   9,
			IPAddress:    "10.0.0.1",
			RequestID:    "req-1",
			Changes:      map[string]any{"role": "admin"},
		})

		var entries []models.AuditLog
		testutil.AssertNoError(t, db.Find(&entries).Error)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		e := entries[0]
		if e.UserID != 7 || e.Action != models.AuditChangeRole || e.ResourceID != 9 || e.IPAddress != "10.0.0.1" || e.RequestID != "req-1" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if e.Changes["role"] != "admin" {
			t.Errorf("unexpected changes: %v", e.Changes)
		}

		var raw string
		testutil.AssertNoError(t, db.Raw("SELECT changes FROM audit_logs WHERE id = ?", e.ID).Scan(&raw).Error)
		if raw != `{"role":"admin"}` {
			t.Errorf("expected changes stored as JSON, got %q", raw)
		}
	})

	t.Run("nil_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		NewAuditService(db).Log(bg, AuditEntry{ActorID: 1, Action: models.AuditDeleteUser, ResourceType: "user", ResourceID: 1})

		var e models.AuditLog
		testutil.AssertNoError(t, db.First(&e).Error)
		if e.Changes != nil {
			t.Errorf("expected no changes, got %v", e.Changes)
		}
	})

	t.Run("write_failure_is_swallowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.AssertNoError(t, db.Migrator().DropTable(&models.AuditLog{}))

		NewAuditService(db).Log(bg, AuditEntry{ActorID: 1, Action: models.AuditDeleteUser, ResourceType: "user"})
	})
}
