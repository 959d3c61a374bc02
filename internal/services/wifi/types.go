package wifi

import (
	"time"

	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

// Status is the radio state published to clients.
type Status struct {
	Mode            radio.Mode           `json:"mode"`
	MACAddress      *string              `json:"macAddress"`
	AccessPointOpen bool                 `json:"accessPointOpen"`
	AccessPoint     *AccessPointSnapshot `json:"accessPoint,omitempty"`
	Connected       bool                 `json:"connected"`
	Connection      *ConnectionSnapshot  `json:"connection,omitempty"`
	SavedNetworks   []SavedNetwork       `json:"savedNetworks"`
}

// ModeResult is the outcome of an access point or mode operation.
type ModeResult struct {
	Success bool       `json:"success"`
	Message *string    `json:"message"`
	Kind    string     `json:"kind,omitempty"`
	Mode    radio.Mode `json:"mode"`
	Err     error      `json:"-"`
}

// ConnectionResult is the outcome of a station operation.
type ConnectionResult struct {
	Success   bool    `json:"success"`
	Message   *string `json:"message"`
	Kind      string  `json:"kind,omitempty"`
	Connected bool    `json:"connected"`
	Err       error   `json:"-"`
}

// Event is one finished operation, kept as history.
type Event struct {
	Operation string
	SSID      string
	BSSID     string
	Success   bool
	Kind      string
	Message   string
	Duration  time.Duration
}

func stringPtr(s string) *string {
	return &s
}
