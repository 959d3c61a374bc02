package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bbernstein/lacylights-wifi/internal/database/models"
)

func TestConnect_InMemory(t *testing.T) {
	DB = nil

	db, err := Connect(Config{URL: ":memory:", MaxIdleConn: 1, MaxOpenConn: 1})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if DB == nil {
		t.Error("Expected global DB to be set")
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		t.Errorf("Failed to query database: %v", err)
	}
	if result != 1 {
		t.Errorf("Expected 1, got %d", result)
	}
	if !db.Migrator().HasTable(&models.RadioEvent{}) {
		t.Error("Expected radio_events table to exist")
	}

	if err := Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if DB != nil {
		t.Error("Expected global DB to be cleared")
	}
}

func TestConnect_WithFilePrefix(t *testing.T) {
	DB = nil

	dbPath := filepath.Join(t.TempDir(), "nested", "wifi.db")
	_, err := Connect(Config{URL: "file:" + dbPath, MaxIdleConn: 1, MaxOpenConn: 1})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() { _ = Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestClose_NoConnection(t *testing.T) {
	DB = nil
	if err := Close(); err != nil {
		t.Errorf("Close without connection should succeed, got %v", err)
	}
}
