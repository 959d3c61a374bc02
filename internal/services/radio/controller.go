package radio

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
)

// Controller wraps a Driver with idempotent mode switching, identity
// formatting and best-effort scanning. It does not serialize callers; the
// owner of the radio is expected to do that.
type Controller struct {
	driver Driver
	log    logr.Logger
}

// NewController creates a controller over the given driver.
func NewController(driver Driver, log logr.Logger) *Controller {
	return &Controller{driver: driver, log: log.WithName("radio")}
}

// Mode returns the current radio mode.
func (c *Controller) Mode() (Mode, error) {
	mode, err := c.driver.Mode()
	return mode, wrap("get mode", err)
}

// SetMode transitions the radio. Requesting the mode already in effect does
// not reach the driver.
func (c *Controller) SetMode(mode Mode) error {
	current, err := c.driver.Mode()
	if err == nil && current == mode {
		return nil
	}
	if err := c.driver.SetMode(mode, nil); err != nil {
		c.log.Error(err, "Mode switch failed", "from", current, "to", mode)
		return wrap("set mode", err)
	}
	c.log.V(1).Info("Mode switched", "from", current, "to", mode)
	return nil
}

// StartAccessPoint switches to mode and (re)configures the hosted network,
// even when mode is already in effect.
func (c *Controller) StartAccessPoint(mode Mode, ap APSettings) error {
	if err := c.driver.SetMode(mode, &ap); err != nil {
		return wrap("start access point", err)
	}
	return nil
}

// InterfaceAddress returns the current address of an interface.
func (c *Controller) InterfaceAddress(id InterfaceID) (InterfaceAddress, error) {
	addr, err := c.driver.Address(id)
	if err != nil {
		return Unassigned, wrap("get "+id.String()+" address", err)
	}
	return addr, nil
}

// SetInterfaceAddress assigns a static address to an interface.
func (c *Controller) SetInterfaceAddress(id InterfaceID, addr InterfaceAddress) error {
	return wrap("set "+id.String()+" address", c.driver.SetAddress(id, addr))
}

// UseDHCP reverts an interface to dynamic address acquisition.
func (c *Controller) UseDHCP(id InterfaceID) error {
	return wrap("dhcp "+id.String(), c.driver.UseDHCP(id))
}

// IsActive reports whether an interface holds a non-sentinel address. A
// driver failure counts as inactive.
func (c *Controller) IsActive(id InterfaceID) bool {
	addr, err := c.InterfaceAddress(id)
	if err != nil {
		c.log.V(1).Info("Address read failed", "interface", id.String(), "error", err.Error())
		return false
	}
	return addr.IsAssigned()
}

// Identity returns the radio's hardware address as uppercase colon separated hex.
func (c *Controller) Identity() (string, error) {
	hw, err := c.driver.HardwareAddr()
	if err != nil {
		return "", wrap("read identity", err)
	}
	return network.FormatHardwareAddr(hw), nil
}

// Scan lists visible networks. Scanning is best effort: a driver failure is
// logged and reported as an empty result.
func (c *Controller) Scan(ctx context.Context) []Network {
	networks, err := c.driver.Scan(ctx)
	if err != nil {
		c.log.Error(err, "Scan failed")
		return []Network{}
	}
	for i := range networks {
		networks[i].BSSID = network.NormalizeBSSID(networks[i].BSSID)
	}
	return networks
}

// Connect issues an association request on the station interface.
func (c *Controller) Connect(ctx context.Context, p ConnectParams) error {
	p.BSSID = network.NormalizeBSSID(p.BSSID)
	return wrap("connect", c.driver.Connect(ctx, p))
}

// Disconnect drops the current association.
func (c *Controller) Disconnect() error {
	return wrap("disconnect", c.driver.Disconnect())
}
