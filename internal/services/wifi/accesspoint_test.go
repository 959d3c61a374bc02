package wifi

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

func TestAccessPoint_OpenOpenNetwork(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())

	require.NoError(t, m.Open(context.Background(), "Test-AP", "", "192.168.0.254", true))

	assert.True(t, m.IsOpen())
	assert.Equal(t, radio.ModeDual, r.mode(t))

	addr, err := r.ctrl.InterfaceAddress(radio.InterfaceAccessPoint)
	require.NoError(t, err)
	assert.Equal(t, radio.InterfaceAddress{
		IP: "192.168.0.254", Mask: "255.255.255.0", Gateway: "192.168.0.254", DNS: "192.168.0.254",
	}, addr)

	ap := r.sim.AccessPoint()
	require.NotNil(t, ap)
	assert.Equal(t, radio.AuthOpen, ap.Auth)

	snap := m.Snapshot()
	assert.Equal(t, "Test-AP", snap.SSID)
	assert.Equal(t, "192.168.0.255", snap.Broadcast)

	persisted := r.store.Load()
	require.NotNil(t, persisted.AccessPoint)
	assert.Equal(t, AccessPointProfile{SSID: "Test-AP", IP: "192.168.0.254"}, *persisted.AccessPoint)
}

func TestAccessPoint_OpenWithKeyUsesDefaultAuth(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())

	require.NoError(t, m.Open(context.Background(), "Test-AP", "password1", "10.0.0.1", false))

	assert.Equal(t, radio.DefaultAuth, r.sim.AccessPoint().Auth)
	assert.Nil(t, r.store.Load().AccessPoint, "not persisted without autoSave")
}

func TestAccessPoint_OpenInvalid(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())

	tests := []struct{ ssid, ip string }{
		{"", "192.168.0.254"},
		{"Test-AP", ""},
	}
	for _, tt := range tests {
		err := m.Open(context.Background(), tt.ssid, "", tt.ip, true)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.False(t, m.IsOpen())
	assert.Equal(t, 0, r.sim.ModeSwitches())
}

func TestAccessPoint_OpenFailureCleansUp(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())
	r.sim.Fail("set-mode", errors.New("device busy"))

	err := m.Open(context.Background(), "Test-AP", "", "192.168.0.254", true)

	var radioErr *radio.Error
	require.ErrorAs(t, err, &radioErr)
	assert.False(t, m.IsOpen())
	assert.Equal(t, AccessPointSnapshot{}, m.Snapshot())
	assert.Nil(t, r.doc.AccessPoint)
}

func TestAccessPoint_Close(t *testing.T) {
	tests := []struct {
		name     string
		mode     radio.Mode
		expected radio.Mode
	}{
		{"dual keeps station", radio.ModeDual, radio.ModeStation},
		{"access point only turns off", radio.ModeAccessPoint, radio.ModeOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())
			require.NoError(t, m.Open(context.Background(), "Test-AP", "", "192.168.0.254", false))
			require.NoError(t, r.ctrl.StartAccessPoint(tt.mode, radio.APSettings{SSID: "Test-AP"}))

			require.NoError(t, m.Close(context.Background()))

			addr, err := r.ctrl.InterfaceAddress(radio.InterfaceAccessPoint)
			require.NoError(t, err)
			assert.Equal(t, radio.Unassigned, addr)
			assert.Equal(t, tt.expected, r.mode(t))
			assert.False(t, m.IsOpen())
		})
	}
}

func TestAccessPoint_FromConfig(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())

	assert.ErrorIs(t, m.OpenFromConfig(context.Background()), ErrNoProfile)

	r.doc.AccessPoint = &AccessPointProfile{SSID: "Saved-AP", Key: "password1", IP: "192.168.4.1"}
	require.NoError(t, m.OpenFromConfig(context.Background()))
	assert.Equal(t, "Saved-AP", m.Snapshot().SSID)
	assert.Equal(t, "192.168.4.1", m.Snapshot().IP)
}

func TestAccessPoint_RemoveFromConfig(t *testing.T) {
	r := newRig(t)
	m := NewAccessPointManager(r.ctrl, r.store, r.doc, logr.Discard())
	require.NoError(t, m.Open(context.Background(), "Test-AP", "", "192.168.0.254", true))

	require.NoError(t, m.RemoveFromConfig())

	assert.Nil(t, r.store.Load().AccessPoint)
	assert.True(t, m.IsOpen(), "removing the profile leaves the network up")
	assert.ErrorIs(t, m.RemoveFromConfig(), ErrNoProfile)
}
