package radio

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
)

// SimulatedNetwork is a network visible to the Simulator.
type SimulatedNetwork struct {
	Network
	// Key the network accepts. Associations with a different key never obtain an address.
	Key string
	// Lease is the address handed out once associated.
	Lease InterfaceAddress
	// AssociationDelay is how long the lease takes to arrive.
	AssociationDelay time.Duration
}

// Simulator is an in-memory Driver. It backs development hosts without a
// WiFi adapter and the service tests.
type Simulator struct {
	mu        sync.Mutex
	mode      Mode
	ap        *APSettings
	addrs     map[InterfaceID]InterfaceAddress
	mac       net.HardwareAddr
	networks  []SimulatedNetwork
	failures  map[string]error
	modeCalls int
	assocGen  int
	assocWith *Network
	timer     *time.Timer
}

// NewSimulator creates a simulated radio in ModeOff.
func NewSimulator(mac net.HardwareAddr, networks ...SimulatedNetwork) *Simulator {
	return &Simulator{
		mode: ModeOff,
		addrs: map[InterfaceID]InterfaceAddress{
			InterfaceStation:     Unassigned,
			InterfaceAccessPoint: Unassigned,
		},
		mac:      mac,
		networks: networks,
		failures: map[string]error{},
	}
}

// SetNetworks replaces the set of visible networks.
func (s *Simulator) SetNetworks(networks ...SimulatedNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = networks
}

// Fail makes every subsequent call of op ("mode", "set-mode", "address",
// "set-address", "dhcp", "mac", "scan", "connect", "disconnect") return err.
// A nil err clears the failure.
func (s *Simulator) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// ModeSwitches returns how many SetMode calls reached the simulator.
func (s *Simulator) ModeSwitches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeCalls
}

// AccessPoint returns the last access point settings applied.
func (s *Simulator) AccessPoint() *APSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ap == nil {
		return nil
	}
	ap := *s.ap
	return &ap
}

// Associated returns the network the station is associated with, if any.
func (s *Simulator) Associated() *Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assocWith == nil {
		return nil
	}
	n := *s.assocWith
	return &n
}

func (s *Simulator) Mode() (Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["mode"]; err != nil {
		return "", err
	}
	return s.mode, nil
}

func (s *Simulator) SetMode(mode Mode, ap *APSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modeCalls++
	if err := s.failures["set-mode"]; err != nil {
		return err
	}
	if ap != nil {
		cp := *ap
		s.ap = &cp
	}
	if mode.HasAccessPoint() && s.ap == nil {
		return errors.New("no access point settings")
	}
	if !mode.HasStation() {
		s.dropAssociationLocked()
	}
	s.mode = mode
	return nil
}

func (s *Simulator) Address(id InterfaceID) (InterfaceAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["address"]; err != nil {
		return Unassigned, err
	}
	return s.addrs[id], nil
}

func (s *Simulator) SetAddress(id InterfaceID, addr InterfaceAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["set-address"]; err != nil {
		return err
	}
	s.addrs[id] = addr
	return nil
}

func (s *Simulator) UseDHCP(id InterfaceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["dhcp"]; err != nil {
		return err
	}
	if id == InterfaceStation && s.assocWith == nil {
		s.addrs[id] = Unassigned
	}
	return nil
}

func (s *Simulator) HardwareAddr() (net.HardwareAddr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["mac"]; err != nil {
		return nil, err
	}
	return s.mac, nil
}

func (s *Simulator) Scan(ctx context.Context) ([]Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["scan"]; err != nil {
		return nil, err
	}
	if !s.mode.HasStation() {
		return nil, errors.New("station interface is down")
	}
	out := make([]Network, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n.Network)
	}
	return out, nil
}

func (s *Simulator) Connect(ctx context.Context, p ConnectParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["connect"]; err != nil {
		return err
	}
	if !s.mode.HasStation() {
		return errors.New("station interface is down")
	}
	s.dropAssociationLocked()

	var target *SimulatedNetwork
	for i := range s.networks {
		n := &s.networks[i]
		if n.SSID == p.SSID && (p.BSSID == "" || strings.EqualFold(network.NormalizeBSSID(n.BSSID), p.BSSID)) {
			target = n
			break
		}
	}
	if target == nil || target.Key != p.Key {
		// Like real hardware, a bad key or unknown network simply never gets a lease.
		return nil
	}

	s.assocGen++
	gen := s.assocGen
	assoc := target.Network
	s.assocWith = &assoc
	lease := target.Lease
	if target.AssociationDelay <= 0 {
		s.addrs[InterfaceStation] = lease
		return nil
	}
	s.timer = time.AfterFunc(target.AssociationDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.assocGen == gen && s.assocWith != nil {
			s.addrs[InterfaceStation] = lease
		}
	})
	return nil
}

func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["disconnect"]; err != nil {
		return err
	}
	s.dropAssociationLocked()
	return nil
}

func (s *Simulator) dropAssociationLocked() {
	s.assocGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.assocWith = nil
	s.addrs[InterfaceStation] = Unassigned
}
