package wifi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/poll"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

// DefaultConnectTimeout bounds a connection attempt when none is given.
const DefaultConnectTimeout = 10 * time.Second

// ConnectRequest describes a station connection attempt.
type ConnectRequest struct {
	SSID string `json:"ssid"`
	Key  string `json:"key,omitempty"`
	// BSSID restricts the attempt to one access point when set.
	BSSID    string        `json:"bssid,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
	AutoSave bool          `json:"autoSave"`
}

// ConnectionSnapshot describes the current station association.
type ConnectionSnapshot struct {
	SSID    string `json:"ssid"`
	BSSID   string `json:"bssid"`
	Key     string `json:"key,omitempty"`
	IP      string `json:"ip"`
	Mask    string `json:"mask"`
	Gateway string `json:"gateway"`
	DNS     string `json:"dns"`
}

// SavedNetwork is a persisted station profile without its key.
type SavedNetwork struct {
	SSID  string `json:"ssid"`
	BSSID string `json:"bssid"`
}

// StationManager joins external networks on the station interface.
type StationManager struct {
	radio        *radio.Controller
	store        *ConfigStore
	doc          *Document
	log          logr.Logger
	pollInterval time.Duration
	snapshot     ConnectionSnapshot
}

// NewStationManager creates a manager sharing doc with the other managers.
func NewStationManager(ctrl *radio.Controller, store *ConfigStore, doc *Document, log logr.Logger) *StationManager {
	return &StationManager{
		radio:        ctrl,
		store:        store,
		doc:          doc,
		log:          log.WithName("station"),
		pollInterval: poll.DefaultInterval,
	}
}

// ensureStationMode adds station capability to the current mode.
func (m *StationManager) ensureStationMode() error {
	mode, err := m.radio.Mode()
	if err != nil {
		return err
	}
	switch mode {
	case radio.ModeAccessPoint:
		return m.radio.SetMode(radio.ModeDual)
	case radio.ModeOff:
		return m.radio.SetMode(radio.ModeStation)
	}
	return nil
}

// Scan lists visible networks, enabling the station first if needed.
func (m *StationManager) Scan(ctx context.Context) []radio.Network {
	if err := m.ensureStationMode(); err != nil {
		m.log.Error(err, "Cannot enable station for scan")
	}
	return m.radio.Scan(ctx)
}

// Connect joins the first scanned network matching the request and waits
// for the station to obtain an address. The timeout covers the whole call.
func (m *StationManager) Connect(ctx context.Context, req ConnectRequest) error {
	if req.SSID == "" {
		return fmt.Errorf("%w: ssid is required", ErrInvalidArgument)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := m.ensureStationMode(); err != nil {
		return err
	}

	m.log.Info("Trying to connect", "ssid", req.SSID, "bssid", req.BSSID)
	match := findNetwork(m.radio.Scan(ctx), req.SSID, req.BSSID)
	if match == nil {
		m.log.Info("No matching network in scan", "ssid", req.SSID, "bssid", req.BSSID)
		return fmt.Errorf("%w: %s", ErrNoMatchingAccessPoint, req.SSID)
	}

	params := radio.ConnectParams{
		SSID:    match.SSID,
		BSSID:   match.BSSID,
		Key:     req.Key,
		Auth:    radio.DefaultAuth,
		Timeout: remaining(ctx),
	}
	if err := m.radio.Connect(ctx, params); err != nil {
		m.log.Error(err, "Connect request failed", "ssid", req.SSID)
		m.cleanup()
		return err
	}

	var addr radio.InterfaceAddress
	err := poll.Until(ctx, m.pollInterval, remaining(ctx), func(context.Context) bool {
		a, err := m.radio.InterfaceAddress(radio.InterfaceStation)
		if err != nil {
			m.log.V(1).Info("Station address read failed", "error", err.Error())
			return false
		}
		addr = a
		return a.IsAssigned()
	})
	if err != nil {
		m.cleanup()
		if parent.Err() != nil {
			return parent.Err()
		}
		if errors.Is(err, poll.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			m.log.Info("Connection timed out", "ssid", req.SSID, "timeout", timeout.String())
			return fmt.Errorf("%w: %s after %s", ErrConnectionTimeout, req.SSID, timeout)
		}
		return err
	}

	mac, _ := m.radio.Identity()
	m.log.Info("Connected",
		"mac", mac, "ssid", match.SSID, "bssid", match.BSSID, "ip", addr.IP,
		"mask", addr.Mask, "gateway", addr.Gateway, "dns", addr.DNS)

	if req.AutoSave {
		m.doc.Stations[match.BSSID] = StationProfile{SSID: match.SSID, Key: req.Key}
		if err := m.store.Save(m.doc); err != nil {
			m.log.Error(err, "Failed to persist station profile")
		}
	}

	m.snapshot = ConnectionSnapshot{
		SSID:    match.SSID,
		BSSID:   match.BSSID,
		Key:     req.Key,
		IP:      addr.IP,
		Mask:    addr.Mask,
		Gateway: addr.Gateway,
		DNS:     addr.DNS,
	}
	return nil
}

// ConnectFromConfig scans and tries persisted profiles against visible
// networks in scan order until one connects. Profiles sharing an SSID are
// tried in ascending BSSID order and only the first is attempted per network.
func (m *StationManager) ConnectFromConfig(ctx context.Context, bssidMustMatch bool, timeout time.Duration) error {
	if err := m.ensureStationMode(); err != nil {
		return err
	}

	bssids := make([]string, 0, len(m.doc.Stations))
	for bssid := range m.doc.Stations {
		bssids = append(bssids, bssid)
	}
	sort.Strings(bssids)

	var lastErr error
	for _, n := range m.radio.Scan(ctx) {
		for _, bssid := range bssids {
			p := m.doc.Stations[bssid]
			if p.SSID != n.SSID {
				continue
			}
			if bssidMustMatch && network.NormalizeBSSID(bssid) != n.BSSID {
				continue
			}
			req := ConnectRequest{SSID: n.SSID, Key: p.Key, Timeout: timeout}
			if bssidMustMatch {
				req.BSSID = n.BSSID
			}
			err := m.Connect(ctx, req)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			break
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("%w: no configured network in range", ErrNoMatchingAccessPoint)
}

// RemoveFromConfig deletes every persisted profile with ssid, restricted to
// bssid when one is given.
func (m *StationManager) RemoveFromConfig(ssid, bssid string) error {
	bssid = network.NormalizeBSSID(bssid)
	removed := 0
	for key, p := range m.doc.Stations {
		if p.SSID != ssid {
			continue
		}
		if bssid != "" && network.NormalizeBSSID(key) != bssid {
			continue
		}
		delete(m.doc.Stations, key)
		removed++
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrNoProfile, ssid)
	}
	m.log.Info("Removed station profiles", "ssid", ssid, "count", removed)
	return m.store.Save(m.doc)
}

// SavedNetworks lists persisted profiles ordered by BSSID.
func (m *StationManager) SavedNetworks() []SavedNetwork {
	out := make([]SavedNetwork, 0, len(m.doc.Stations))
	for bssid, p := range m.doc.Stations {
		out = append(out, SavedNetwork{SSID: p.SSID, BSSID: bssid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BSSID < out[j].BSSID })
	return out
}

// Disconnect drops the association and returns the station to DHCP.
func (m *StationManager) Disconnect() error {
	m.snapshot = ConnectionSnapshot{}
	return errors.Join(
		m.radio.Disconnect(),
		m.radio.UseDHCP(radio.InterfaceStation),
	)
}

// IsConnected reports whether the station interface holds an address.
func (m *StationManager) IsConnected() bool {
	return m.radio.IsActive(radio.InterfaceStation)
}

// Snapshot returns the current association, or the zero value when disconnected.
func (m *StationManager) Snapshot() ConnectionSnapshot {
	if !m.IsConnected() {
		m.snapshot = ConnectionSnapshot{}
	}
	return m.snapshot
}

func (m *StationManager) cleanup() {
	if err := m.Disconnect(); err != nil {
		m.log.Error(err, "Cleanup after failed connect")
	}
}

func findNetwork(networks []radio.Network, ssid, bssid string) *radio.Network {
	bssid = network.NormalizeBSSID(bssid)
	for i := range networks {
		n := networks[i]
		if n.SSID == ssid && (bssid == "" || n.BSSID == bssid) {
			return &n
		}
	}
	return nil
}

func remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return DefaultConnectTimeout
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}
