package radio

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMAC(t *testing.T) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC("dc:a6:32:12:ab:cd")
	require.NoError(t, err)
	return mac
}

func TestController_SetModeIsIdempotent(t *testing.T) {
	sim := NewSimulator(testMAC(t))
	c := NewController(sim, logr.Discard())

	require.NoError(t, c.SetMode(ModeStation))
	require.NoError(t, c.SetMode(ModeStation))

	assert.Equal(t, 1, sim.ModeSwitches())
	mode, err := c.Mode()
	require.NoError(t, err)
	assert.Equal(t, ModeStation, mode)
}

func TestController_SetModeFailureKeepsPreviousMode(t *testing.T) {
	sim := NewSimulator(testMAC(t))
	c := NewController(sim, logr.Discard())
	require.NoError(t, c.SetMode(ModeStation))

	sim.Fail("set-mode", errors.New("firmware busy"))
	err := c.SetMode(ModeOff)

	var radioErr *Error
	require.ErrorAs(t, err, &radioErr)
	assert.Equal(t, "set mode", radioErr.Op)
	mode, _ := c.Mode()
	assert.Equal(t, ModeStation, mode)
}

func TestController_StartAccessPointAlwaysApplies(t *testing.T) {
	sim := NewSimulator(testMAC(t))
	c := NewController(sim, logr.Discard())

	require.NoError(t, c.StartAccessPoint(ModeDual, APSettings{SSID: "first"}))
	require.NoError(t, c.StartAccessPoint(ModeDual, APSettings{SSID: "second", Key: "k", Auth: AuthWPA2}))

	assert.Equal(t, 2, sim.ModeSwitches())
	require.NotNil(t, sim.AccessPoint())
	assert.Equal(t, "second", sim.AccessPoint().SSID)
}

func TestController_Identity(t *testing.T) {
	c := NewController(NewSimulator(testMAC(t)), logr.Discard())

	id, err := c.Identity()
	require.NoError(t, err)
	assert.Equal(t, "DC:A6:32:12:AB:CD", id)
}

func TestController_ScanFailureIsEmpty(t *testing.T) {
	sim := NewSimulator(testMAC(t), SimulatedNetwork{Network: Network{SSID: "Net", BSSID: "aa:bb:cc:dd:ee:ff"}})
	c := NewController(sim, logr.Discard())
	require.NoError(t, c.SetMode(ModeStation))

	networks := c.Scan(context.Background())
	require.Len(t, networks, 1)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", networks[0].BSSID)

	sim.Fail("scan", errors.New("busy"))
	networks = c.Scan(context.Background())
	assert.NotNil(t, networks)
	assert.Empty(t, networks)
}

func TestController_IsActiveFollowsAddress(t *testing.T) {
	sim := NewSimulator(testMAC(t))
	c := NewController(sim, logr.Discard())

	assert.False(t, c.IsActive(InterfaceAccessPoint))

	addr := InterfaceAddress{IP: "192.168.0.254", Mask: "255.255.255.0", Gateway: "192.168.0.254", DNS: "192.168.0.254"}
	require.NoError(t, c.SetInterfaceAddress(InterfaceAccessPoint, addr))
	assert.True(t, c.IsActive(InterfaceAccessPoint))

	require.NoError(t, c.SetInterfaceAddress(InterfaceAccessPoint, Unassigned))
	assert.False(t, c.IsActive(InterfaceAccessPoint))

	sim.Fail("address", errors.New("gone"))
	assert.False(t, c.IsActive(InterfaceAccessPoint))
}
