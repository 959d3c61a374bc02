// Package radio is the thin but stateful façade over the device's WiFi radio.
package radio

import (
	"context"
	"net"
	"time"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
)

// Mode is the operating mode of the radio. Exactly one mode is in effect at a time.
type Mode string

const (
	// ModeOff indicates the radio is disabled.
	ModeOff Mode = "OFF"
	// ModeAccessPoint indicates the radio only hosts the local access point.
	ModeAccessPoint Mode = "AP"
	// ModeStation indicates the radio only joins networks as a client.
	ModeStation Mode = "STA"
	// ModeDual indicates the radio hosts the access point and acts as a client at the same time.
	ModeDual Mode = "STA_AP"
)

// HasAccessPoint reports whether the mode includes access point capability.
func (m Mode) HasAccessPoint() bool {
	return m == ModeAccessPoint || m == ModeDual
}

// HasStation reports whether the mode includes client capability.
func (m Mode) HasStation() bool {
	return m == ModeStation || m == ModeDual
}

// InterfaceID identifies one of the two logical interfaces of the radio.
type InterfaceID int

const (
	InterfaceStation     InterfaceID = 0
	InterfaceAccessPoint InterfaceID = 1
)

func (id InterfaceID) String() string {
	switch id {
	case InterfaceStation:
		return "station"
	case InterfaceAccessPoint:
		return "access-point"
	default:
		return "unknown"
	}
}

// InterfaceAddress is the IPv4 configuration of a logical interface.
type InterfaceAddress struct {
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gateway"`
	DNS     string `json:"dns"`
}

// Unassigned is the address of an inactive interface.
var Unassigned = InterfaceAddress{
	IP:      network.UnassignedIP,
	Mask:    network.UnassignedIP,
	Gateway: network.UnassignedIP,
	DNS:     network.UnassignedIP,
}

// IsAssigned reports whether the interface holds a real address.
func (a InterfaceAddress) IsAssigned() bool {
	return network.IsAssigned(a.IP)
}

// AuthType is the security scheme advertised by or requested from a network.
type AuthType string

const (
	AuthOpen           AuthType = "OPEN"
	AuthWEP            AuthType = "WEP"
	AuthWPA            AuthType = "WPA"
	AuthWPA2           AuthType = "WPA2"
	AuthWPA3           AuthType = "WPA3"
	AuthWPA2Enterprise AuthType = "WPA2_ENT"
)

// DefaultAuth is used whenever a key is supplied without an explicit scheme.
const DefaultAuth = AuthWPA2

// Network is one entry of a scan result.
type Network struct {
	SSID    string   `json:"ssid"`
	BSSID   string   `json:"bssid"`
	RSSI    int      `json:"rssi"`
	Channel int      `json:"channel"`
	Auth    AuthType `json:"auth"`
}

// APSettings describes the access point the radio should host.
// Auth is empty for an open network.
type APSettings struct {
	SSID string
	Key  string
	Auth AuthType
}

// ConnectParams is an association request for the station interface.
type ConnectParams struct {
	SSID    string
	BSSID   string
	Key     string
	Auth    AuthType
	Timeout time.Duration
}

// Driver is the hardware capability surface. Every call may fail; failures are
// reported to callers of Controller as *Error.
type Driver interface {
	Mode() (Mode, error)
	// SetMode switches the radio. When mode has access point capability and ap
	// is nil, the driver re-uses the last access point settings it was given.
	SetMode(mode Mode, ap *APSettings) error
	Address(id InterfaceID) (InterfaceAddress, error)
	SetAddress(id InterfaceID, addr InterfaceAddress) error
	UseDHCP(id InterfaceID) error
	HardwareAddr() (net.HardwareAddr, error)
	Scan(ctx context.Context) ([]Network, error)
	// Connect issues an association request. It may return before the
	// interface has obtained an address.
	Connect(ctx context.Context, p ConnectParams) error
	Disconnect() error
}
