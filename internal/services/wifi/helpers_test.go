package wifi

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

var testMAC = net.HardwareAddr{0xdc, 0xa6, 0x32, 0x12, 0xab, 0xcd}

type rig struct {
	sim   *radio.Simulator
	ctrl  *radio.Controller
	store *ConfigStore
	doc   *Document
}

func newRig(t *testing.T, networks ...radio.SimulatedNetwork) *rig {
	t.Helper()
	sim := radio.NewSimulator(testMAC, networks...)
	store := NewConfigStore(filepath.Join(t.TempDir(), "wifi.json"), logr.Discard())
	return &rig{
		sim:   sim,
		ctrl:  radio.NewController(sim, logr.Discard()),
		store: store,
		doc:   store.Load(),
	}
}

func (r *rig) mode(t *testing.T) radio.Mode {
	t.Helper()
	mode, err := r.ctrl.Mode()
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	return mode
}

func homeNetwork(bssid string) radio.SimulatedNetwork {
	return radio.SimulatedNetwork{
		Network: radio.Network{SSID: "Home", BSSID: bssid, RSSI: -48, Channel: 6, Auth: radio.AuthWPA2},
		Key:     "secret",
		Lease: radio.InterfaceAddress{
			IP:      "192.168.1.50",
			Mask:    "255.255.255.0",
			Gateway: "192.168.1.1",
			DNS:     "192.168.1.1",
		},
	}
}
