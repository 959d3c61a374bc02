package wifi

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

// AccessPointSnapshot describes the hosted network while it is open.
type AccessPointSnapshot struct {
	SSID      string `json:"ssid"`
	Key       string `json:"key,omitempty"`
	IP        string `json:"ip"`
	Mask      string `json:"mask"`
	Gateway   string `json:"gateway"`
	DNS       string `json:"dns"`
	Broadcast string `json:"broadcast"`
}

// AccessPointManager hosts a network on the access point interface.
type AccessPointManager struct {
	radio    *radio.Controller
	store    *ConfigStore
	doc      *Document
	log      logr.Logger
	snapshot AccessPointSnapshot
}

// NewAccessPointManager creates a manager sharing doc with the other managers.
func NewAccessPointManager(ctrl *radio.Controller, store *ConfigStore, doc *Document, log logr.Logger) *AccessPointManager {
	return &AccessPointManager{
		radio: ctrl,
		store: store,
		doc:   doc,
		log:   log.WithName("access-point"),
	}
}

// Open hosts ssid at ip with a /24 network. An empty key opens an
// unauthenticated network. When autoSave is set the profile replaces the
// persisted access point.
func (m *AccessPointManager) Open(ctx context.Context, ssid, key, ip string, autoSave bool) error {
	if ssid == "" || ip == "" {
		m.snapshot = AccessPointSnapshot{}
		return fmt.Errorf("%w: access point needs an ssid and an ip", ErrInvalidArgument)
	}

	addr := radio.InterfaceAddress{IP: ip, Mask: network.ClassCMask, Gateway: ip, DNS: ip}
	settings := radio.APSettings{SSID: ssid, Key: key, Auth: radio.AuthOpen}
	if key != "" {
		settings.Auth = radio.DefaultAuth
	}

	err := m.radio.SetInterfaceAddress(radio.InterfaceAccessPoint, addr)
	if err == nil {
		err = m.radio.StartAccessPoint(radio.ModeDual, settings)
	}
	if err != nil {
		m.log.Error(err, "Failed to open access point", "ssid", ssid)
		if cerr := m.Close(ctx); cerr != nil {
			m.log.Error(cerr, "Cleanup after failed open")
		}
		return err
	}

	mac, _ := m.radio.Identity()
	broadcast := network.Broadcast(ip, addr.Mask)
	m.log.Info("Access point open",
		"mac", mac, "ssid", ssid, "ip", ip, "mask", addr.Mask,
		"gateway", addr.Gateway, "dns", addr.DNS, "broadcast", broadcast)

	if autoSave {
		m.doc.AccessPoint = &AccessPointProfile{SSID: ssid, Key: key, IP: ip}
		if err := m.store.Save(m.doc); err != nil {
			m.log.Error(err, "Failed to persist access point profile")
		}
	}

	m.snapshot = AccessPointSnapshot{
		SSID:      ssid,
		Key:       key,
		IP:        ip,
		Mask:      addr.Mask,
		Gateway:   addr.Gateway,
		DNS:       addr.DNS,
		Broadcast: broadcast,
	}
	return nil
}

// OpenFromConfig opens the persisted access point without saving it again.
func (m *AccessPointManager) OpenFromConfig(ctx context.Context) error {
	p := m.doc.AccessPoint
	if p == nil {
		return fmt.Errorf("%w: no access point configured", ErrNoProfile)
	}
	return m.Open(ctx, p.SSID, p.Key, p.IP, false)
}

// RemoveFromConfig deletes the persisted access point.
func (m *AccessPointManager) RemoveFromConfig() error {
	if m.doc.AccessPoint == nil {
		return fmt.Errorf("%w: no access point configured", ErrNoProfile)
	}
	m.doc.AccessPoint = nil
	return m.store.Save(m.doc)
}

// Close releases the access point address and drops the access point
// capability from the radio mode, leaving the station untouched.
func (m *AccessPointManager) Close(ctx context.Context) error {
	m.snapshot = AccessPointSnapshot{}
	addrErr := m.radio.SetInterfaceAddress(radio.InterfaceAccessPoint, radio.Unassigned)

	mode, err := m.radio.Mode()
	if err == nil {
		switch mode {
		case radio.ModeDual:
			err = m.radio.SetMode(radio.ModeStation)
		case radio.ModeAccessPoint:
			err = m.radio.SetMode(radio.ModeOff)
		}
	}
	if err == nil && addrErr == nil {
		m.log.Info("Access point closed")
	}
	return errors.Join(addrErr, err)
}

// IsOpen reports whether the access point interface holds an address.
func (m *AccessPointManager) IsOpen() bool {
	return m.radio.IsActive(radio.InterfaceAccessPoint)
}

// Snapshot returns the open network, or the zero value when closed.
func (m *AccessPointManager) Snapshot() AccessPointSnapshot {
	if !m.IsOpen() {
		m.snapshot = AccessPointSnapshot{}
	}
	return m.snapshot
}
