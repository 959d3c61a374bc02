// Package wifi owns the radio: it hosts an access point, joins networks as
// a station and persists both profiles.
package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/diagnostics"
	"github.com/bbernstein/lacylights-wifi/internal/services/metrics"
	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

// EventRecorder stores finished operations.
type EventRecorder interface {
	Record(ctx context.Context, e Event) error
}

// Service serializes every radio operation behind one lock so the managers
// never observe each other's intermediate states.
type Service struct {
	mu             sync.Mutex
	radio          *radio.Controller
	store          *ConfigStore
	doc            *Document
	ap             *AccessPointManager
	sta            *StationManager
	probe          *diagnostics.Probe
	log            logr.Logger
	connectTimeout time.Duration

	statusCallback func(*Status)
	recorder       EventRecorder
	metrics        *metrics.Collectors
}

// NewService loads the persisted configuration and builds the managers.
func NewService(ctrl *radio.Controller, store *ConfigStore, probe *diagnostics.Probe, log logr.Logger) *Service {
	doc := store.Load()
	s := &Service{
		radio:          ctrl,
		store:          store,
		doc:            doc,
		ap:             NewAccessPointManager(ctrl, store, doc, log),
		sta:            NewStationManager(ctrl, store, doc, log),
		probe:          probe,
		log:            log.WithName("wifi"),
		connectTimeout: DefaultConnectTimeout,
	}
	if probe != nil {
		probe.SetGuard(&s.mu)
	}
	return s
}

// SetStatusCallback sets a function called with the new status after every change.
func (s *Service) SetStatusCallback(callback func(*Status)) {
	s.statusCallback = callback
}

// SetEventRecorder sets where finished operations are stored.
func (s *Service) SetEventRecorder(r EventRecorder) {
	s.recorder = r
}

// SetMetrics sets the collectors updated after each operation.
func (s *Service) SetMetrics(m *metrics.Collectors) {
	s.metrics = m
}

// SetConnectTimeout changes the default bound of station connections.
func (s *Service) SetConnectTimeout(d time.Duration) {
	if d > 0 {
		s.connectTimeout = d
	}
}

// HasAccessPointProfile reports whether an access point is persisted.
func (s *Service) HasAccessPointProfile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.AccessPoint != nil
}

// OpenAccessPoint hosts a network. See AccessPointManager.Open.
func (s *Service) OpenAccessPoint(ctx context.Context, ssid, key, ip string, autoSave bool) *ModeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.ap.Open(ctx, ssid, key, ip, autoSave)
	s.finish(ctx, "open_access_point", ssid, "", start, err)
	return s.modeResult(err, "Access point open")
}

// OpenAccessPointFromConfig hosts the persisted access point.
func (s *Service) OpenAccessPointFromConfig(ctx context.Context) *ModeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	ssid := ""
	if s.doc.AccessPoint != nil {
		ssid = s.doc.AccessPoint.SSID
	}
	err := s.ap.OpenFromConfig(ctx)
	s.finish(ctx, "open_access_point_from_config", ssid, "", start, err)
	return s.modeResult(err, "Access point open")
}

// CloseAccessPoint stops hosting.
func (s *Service) CloseAccessPoint(ctx context.Context) *ModeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.ap.Close(ctx)
	s.finish(ctx, "close_access_point", "", "", start, err)
	return s.modeResult(err, "Access point closed")
}

// RemoveAccessPointFromConfig forgets the persisted access point.
func (s *Service) RemoveAccessPointFromConfig(ctx context.Context) *ModeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.ap.RemoveFromConfig()
	s.finish(ctx, "remove_access_point_config", "", "", start, err)
	return s.modeResult(err, "Access point profile removed")
}

// IsAccessPointOpen reports whether the access point holds an address.
func (s *Service) IsAccessPointOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ap.IsOpen()
}

// AccessPoint returns the hosted network, or the zero value when closed.
func (s *Service) AccessPoint() AccessPointSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ap.Snapshot()
}

// ScanNetworks lists visible networks.
func (s *Service) ScanNetworks(ctx context.Context) []radio.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sta.Scan(ctx)
}

// Connect joins a network. A zero req.Timeout uses the service default.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) *ConnectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Timeout <= 0 {
		req.Timeout = s.connectTimeout
	}
	start := time.Now()
	err := s.sta.Connect(ctx, req)
	s.finish(ctx, "connect", req.SSID, req.BSSID, start, err)
	return s.connectionResult(err, "Connected to "+req.SSID)
}

// ConnectFromConfig joins the first persisted network in range.
func (s *Service) ConnectFromConfig(ctx context.Context, bssidMustMatch bool, timeout time.Duration) *ConnectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout <= 0 {
		timeout = s.connectTimeout
	}
	start := time.Now()
	err := s.sta.ConnectFromConfig(ctx, bssidMustMatch, timeout)
	snap := s.sta.Snapshot()
	s.finish(ctx, "connect_from_config", snap.SSID, snap.BSSID, start, err)
	return s.connectionResult(err, "Connected to "+snap.SSID)
}

// Disconnect leaves the current network.
func (s *Service) Disconnect(ctx context.Context) *ConnectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.sta.Disconnect()
	s.finish(ctx, "disconnect", "", "", start, err)
	return s.connectionResult(err, "Disconnected")
}

// RemoveStationFromConfig forgets persisted networks named ssid, restricted
// to bssid when given.
func (s *Service) RemoveStationFromConfig(ctx context.Context, ssid, bssid string) *ConnectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.sta.RemoveFromConfig(ssid, bssid)
	s.finish(ctx, "remove_station_config", ssid, bssid, start, err)
	return s.connectionResult(err, "Network profile removed")
}

// IsConnected reports whether the station holds an address.
func (s *Service) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sta.IsConnected()
}

// Connection returns the current association, or the zero value.
func (s *Service) Connection() ConnectionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sta.Snapshot()
}

// SavedNetworks lists persisted station profiles without keys.
func (s *Service) SavedNetworks() []SavedNetwork {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sta.SavedNetworks()
}

// ResolveHostname resolves name over the station link. Without a probe
// every lookup fails with diagnostics.ErrResolution.
func (s *Service) ResolveHostname(ctx context.Context, name string) (string, error) {
	if s.probe == nil {
		return "", fmt.Errorf("%w: %s: diagnostics disabled", diagnostics.ErrResolution, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probe.ResolveHostname(ctx, name)
}

// InternetCheckHost returns the host resolved by the internet access checks.
func (s *Service) InternetCheckHost() string {
	if s.probe == nil {
		return diagnostics.DefaultCheckHost
	}
	return s.probe.CheckHost()
}

// HasInternetAccess reports whether the check host resolves.
func (s *Service) HasInternetAccess(ctx context.Context) bool {
	if s.probe == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probe.HasInternetAccess(ctx)
}

// WaitForInternetAccess polls for internet access. The lock is only held
// during each check.
func (s *Service) WaitForInternetAccess(ctx context.Context, timeout time.Duration) bool {
	if s.probe == nil {
		return false
	}
	return s.probe.WaitForInternetAccess(ctx, timeout)
}

// Status returns the current radio state.
func (s *Service) Status() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Service) statusLocked() *Status {
	status := &Status{Mode: radio.ModeOff, SavedNetworks: s.sta.SavedNetworks()}
	if mode, err := s.radio.Mode(); err == nil {
		status.Mode = mode
	}
	if mac, err := s.radio.Identity(); err == nil {
		status.MACAddress = &mac
	}
	if s.ap.IsOpen() {
		snap := s.ap.Snapshot()
		status.AccessPointOpen = true
		status.AccessPoint = &snap
	}
	if s.sta.IsConnected() {
		snap := s.sta.Snapshot()
		status.Connected = true
		status.Connection = &snap
	}
	return status
}

// DisableRadio closes the access point, leaves any network and turns the radio off.
func (s *Service) DisableRadio(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := errors.Join(
		s.ap.Close(ctx),
		s.sta.Disconnect(),
		s.radio.SetMode(radio.ModeOff),
	)
	s.finish(ctx, "disable_radio", "", "", start, err)
	return err
}

// LogStatus writes the current state at info level, including whether the
// check host resolves. The lookup is skipped while disconnected.
func (s *Service) LogStatus(ctx context.Context) {
	s.log.Info("Radio status", s.statusFields(ctx)...)
}

func (s *Service) statusFields(ctx context.Context) []interface{} {
	status := s.Status()
	kv := []interface{}{"mode", status.Mode, "apOpen", status.AccessPointOpen, "connected", status.Connected}
	if status.AccessPoint != nil {
		kv = append(kv, "apSSID", status.AccessPoint.SSID, "apIP", status.AccessPoint.IP)
	}
	if status.Connection != nil {
		kv = append(kv, "staSSID", status.Connection.SSID, "staBSSID", status.Connection.BSSID, "staIP", status.Connection.IP)
	}

	host := s.InternetCheckHost()
	ip := network.UnassignedIP
	internet := false
	if status.Connected {
		if resolved, err := s.ResolveHostname(ctx, host); err == nil {
			ip, internet = resolved, true
		}
	}
	return append(kv, "internet", internet, "checkHost", host, "checkHostIP", ip)
}

// Shutdown turns the radio off. The persisted configuration is kept.
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down radio")
	return s.DisableRadio(ctx)
}

// finish records the outcome of an operation. Callers hold s.mu.
func (s *Service) finish(ctx context.Context, op, ssid, bssid string, start time.Time, err error) {
	elapsed := time.Since(start)
	kind := ErrorKind(err)
	if err != nil {
		s.log.Error(err, "Operation failed", "operation", op, "kind", kind)
	} else {
		s.log.V(1).Info("Operation succeeded", "operation", op, "duration", elapsed.String())
	}

	status := s.statusLocked()
	s.metrics.Observe(op, kind, elapsed.Seconds())
	s.metrics.SetState(status.AccessPointOpen, status.Connected)

	if s.recorder != nil {
		e := Event{
			Operation: op,
			SSID:      ssid,
			BSSID:     bssid,
			Success:   err == nil,
			Kind:      kind,
			Duration:  elapsed,
		}
		if err != nil {
			e.Message = err.Error()
		}
		if rerr := s.recorder.Record(context.WithoutCancel(ctx), e); rerr != nil {
			s.log.Error(rerr, "Failed to record event", "operation", op)
		}
	}

	if s.statusCallback != nil {
		s.statusCallback(status)
	}
}

func (s *Service) modeResult(err error, okMessage string) *ModeResult {
	mode, merr := s.radio.Mode()
	if merr != nil {
		mode = radio.ModeOff
	}
	if err != nil {
		return &ModeResult{Success: false, Message: stringPtr(err.Error()), Kind: ErrorKind(err), Mode: mode, Err: err}
	}
	return &ModeResult{Success: true, Message: stringPtr(okMessage), Mode: mode}
}

func (s *Service) connectionResult(err error, okMessage string) *ConnectionResult {
	connected := s.sta.IsConnected()
	if err != nil {
		return &ConnectionResult{Success: false, Message: stringPtr(err.Error()), Kind: ErrorKind(err), Connected: connected, Err: err}
	}
	return &ConnectionResult{Success: true, Message: stringPtr(okMessage), Connected: connected}
}
