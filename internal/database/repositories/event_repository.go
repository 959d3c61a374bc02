package repositories

import (
	"context"
	"time"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-wifi/internal/database/models"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// DefaultEventLimit caps ListRecent when no limit is given.
const DefaultEventLimit = 50

// EventRepository handles radio event data access.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts an event, assigning an ID when missing.
func (r *EventRepository) Create(ctx context.Context, event *models.RadioEvent) error {
	if event.ID == "" {
		event.ID = cuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// Record stores a finished service operation.
func (r *EventRepository) Record(ctx context.Context, e wifi.Event) error {
	return r.Create(ctx, &models.RadioEvent{
		Operation:  e.Operation,
		SSID:       optional(e.SSID),
		BSSID:      optional(e.BSSID),
		Success:    e.Success,
		ErrorKind:  optional(e.Kind),
		Message:    optional(e.Message),
		DurationMs: e.Duration.Milliseconds(),
	})
}

// ListRecent returns the newest events first. A non-empty operation filters by name.
func (r *EventRepository) ListRecent(ctx context.Context, operation string, limit int) ([]models.RadioEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	var events []models.RadioEvent
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if operation != "" {
		query = query.Where("operation = ?", operation)
	}
	result := query.Find(&events)
	return events, result.Error
}

// DeleteOlderThan removes events created before cutoff and reports how many.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.RadioEvent{})
	return result.RowsAffected, result.Error
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
