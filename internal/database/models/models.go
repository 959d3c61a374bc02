// Package models contains the database model definitions.
package models

import (
	"time"
)

// RadioEvent records one finished radio operation.
// Table: radio_events
type RadioEvent struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	Operation  string    `gorm:"column:operation;index" json:"operation"`
	SSID       *string   `gorm:"column:ssid" json:"ssid,omitempty"`
	BSSID      *string   `gorm:"column:bssid" json:"bssid,omitempty"`
	Success    bool      `gorm:"column:success" json:"success"`
	ErrorKind  *string   `gorm:"column:error_kind" json:"errorKind,omitempty"`
	Message    *string   `gorm:"column:message" json:"message,omitempty"`
	DurationMs int64     `gorm:"column:duration_ms" json:"durationMs"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (RadioEvent) TableName() string { return "radio_events" }
