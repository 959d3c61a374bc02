package api

import (
	"time"

	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// OpenAccessPointRequest is the body of POST /api/wifi/ap/open.
type OpenAccessPointRequest struct {
	SSID     string `json:"ssid"`
	Key      string `json:"key,omitempty"`
	IP       string `json:"ip"`
	AutoSave bool   `json:"autoSave"`
}

// ConnectRequest is the body of POST /api/wifi/station/connect.
type ConnectRequest struct {
	SSID       string `json:"ssid"`
	Key        string `json:"key,omitempty"`
	BSSID      string `json:"bssid,omitempty"`
	TimeoutSec int    `json:"timeoutSec,omitempty"`
	AutoSave   bool   `json:"autoSave"`
}

func (r ConnectRequest) toService() wifi.ConnectRequest {
	return wifi.ConnectRequest{
		SSID:     r.SSID,
		Key:      r.Key,
		BSSID:    r.BSSID,
		Timeout:  seconds(r.TimeoutSec),
		AutoSave: r.AutoSave,
	}
}

// ConnectFromConfigRequest is the body of POST /api/wifi/station/connect-from-config.
type ConnectFromConfigRequest struct {
	BSSIDMustMatch bool `json:"bssidMustMatch"`
	TimeoutSec     int  `json:"timeoutSec,omitempty"`
}

// WaitRequest is the body of POST /api/diagnostics/internet/wait.
type WaitRequest struct {
	TimeoutSec int `json:"timeoutSec,omitempty"`
}

// ResolveResponse answers GET /api/diagnostics/resolve.
type ResolveResponse struct {
	Host    string `json:"host"`
	IP      string `json:"ip,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// InternetResponse answers the internet access checks.
type InternetResponse struct {
	Host     string `json:"host"`
	Internet bool   `json:"internet"`
}

// PublicAddressResponse answers GET /api/diagnostics/public-address.
type PublicAddressResponse struct {
	Address string `json:"address"`
}

// ErrorResponse is returned for malformed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// maxWait caps client supplied waits below the server write timeout.
const maxWait = 45 * time.Second

func seconds(n int) time.Duration {
	d := time.Duration(n) * time.Second
	if d > maxWait {
		return maxWait
	}
	return d
}
