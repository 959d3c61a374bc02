package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-wifi/internal/database/models"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// setupTestDB creates an in-memory SQLite database for testing repositories.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.RadioEvent{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestEventRepository_Record(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Record(ctx, wifi.Event{
		Operation: "connect",
		SSID:      "Home",
		BSSID:     "AA:BB:CC:DD:EE:01",
		Success:   false,
		Kind:      "ConnectionTimeout",
		Message:   "connection timed out",
		Duration:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := repo.ListRecent(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Error("Expected generated ID")
	}
	if e.SSID == nil || *e.SSID != "Home" {
		t.Errorf("Unexpected SSID %v", e.SSID)
	}
	if e.ErrorKind == nil || *e.ErrorKind != "ConnectionTimeout" {
		t.Errorf("Unexpected error kind %v", e.ErrorKind)
	}
	if e.DurationMs != 10000 {
		t.Errorf("Expected 10000ms, got %d", e.DurationMs)
	}
}

func TestEventRepository_RecordSuccessOmitsEmptyFields(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Record(ctx, wifi.Event{Operation: "close_access_point", Success: true}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	events, _ := repo.ListRecent(ctx, "", 10)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].SSID != nil || events[0].ErrorKind != nil || events[0].Message != nil {
		t.Error("Expected empty optional fields to be NULL")
	}
}

func TestEventRepository_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, op := range []string{"connect", "disconnect", "connect", "scan"} {
		e := &models.RadioEvent{Operation: op, Success: true}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		db.Model(e).Update("created_at", base.Add(time.Duration(i)*time.Minute))
	}

	events, err := repo.ListRecent(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(events) != 2 || events[0].Operation != "scan" || events[1].Operation != "connect" {
		t.Errorf("Unexpected order: %+v", events)
	}

	connects, err := repo.ListRecent(ctx, "connect", 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(connects) != 2 {
		t.Errorf("Expected 2 connect events, got %d", len(connects))
	}
}

func TestEventRepository_DeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	old := &models.RadioEvent{Operation: "connect"}
	fresh := &models.RadioEvent{Operation: "disconnect"}
	for _, e := range []*models.RadioEvent{old, fresh} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	db.Model(old).Update("created_at", time.Now().Add(-48*time.Hour))

	n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted, got %d", n)
	}
	events, _ := repo.ListRecent(ctx, "", 10)
	if len(events) != 1 || events[0].Operation != "disconnect" {
		t.Errorf("Unexpected remaining events: %+v", events)
	}
}
