package radio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
)

const (
	// APConnectionName is the NetworkManager connection name for the hosted access point.
	APConnectionName = "lacylights-ap"
	// DefaultAPInterface is the virtual interface created next to the station interface for AP mode.
	DefaultAPInterface = "uap0"
)

// CommandExecutor interface for executing shell commands (for testing).
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
	ExecuteWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error)
}

// realExecutor implements CommandExecutor using actual shell commands.
type realExecutor struct{}

func (e *realExecutor) Execute(name string, args ...string) ([]byte, error) {
	return e.ExecuteWithTimeout(0, name, args...)
}

func (e *realExecutor) ExecuteWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// NMCLIDriver drives a NetworkManager managed adapter. The station runs on
// the physical interface and the access point on a virtual interface created
// on demand, which lets both be active in ModeDual.
type NMCLIDriver struct {
	mu        sync.Mutex
	iface     string
	apIface   string
	executor  CommandExecutor
	log       logr.Logger
	mode      Mode
	ap        *APSettings
	apAddr    InterfaceAddress
	apActive  bool
	modeKnown bool
}

// NewNMCLIDriver creates a driver for the given station and AP interfaces.
func NewNMCLIDriver(iface, apIface string, log logr.Logger) *NMCLIDriver {
	if apIface == "" {
		apIface = DefaultAPInterface
	}
	return &NMCLIDriver{
		iface:    iface,
		apIface:  apIface,
		executor: &realExecutor{},
		log:      log.WithName("nmcli"),
		apAddr:   Unassigned,
	}
}

// SetExecutor sets the command executor (for testing).
func (d *NMCLIDriver) SetExecutor(executor CommandExecutor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executor = executor
}

func (d *NMCLIDriver) Mode() (Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.detectModeLocked(); err != nil {
		return "", err
	}
	return d.mode, nil
}

// detectModeLocked derives the initial mode from NetworkManager. NetworkManager
// has no combined mode, so afterwards the driver tracks the mode itself.
func (d *NMCLIDriver) detectModeLocked() error {
	if d.modeKnown {
		return nil
	}
	out, err := d.executor.Execute("nmcli", "radio", "wifi")
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(out)) != "enabled" {
		d.mode = ModeOff
		d.modeKnown = true
		return nil
	}
	active, err := d.executor.Execute("nmcli", "-t", "-f", "NAME", "connection", "show", "--active")
	if err != nil {
		return err
	}
	d.mode = ModeStation
	for _, line := range strings.Split(string(active), "\n") {
		if strings.TrimSpace(line) == APConnectionName {
			d.mode = ModeDual
			d.apActive = true
			break
		}
	}
	d.modeKnown = true
	return nil
}

func (d *NMCLIDriver) SetMode(mode Mode, ap *APSettings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.detectModeLocked(); err != nil {
		return err
	}
	if ap != nil {
		cp := *ap
		d.ap = &cp
	}

	if mode == ModeOff {
		if d.apActive {
			_ = d.apDownLocked()
		}
		if _, err := d.executor.Execute("nmcli", "radio", "wifi", "off"); err != nil {
			return err
		}
		d.mode = ModeOff
		return nil
	}

	if _, err := d.executor.Execute("nmcli", "radio", "wifi", "on"); err != nil {
		return err
	}

	if mode.HasAccessPoint() {
		if d.ap == nil {
			return errors.New("no access point settings")
		}
		if err := d.apUpLocked(); err != nil {
			return err
		}
	} else if d.apActive {
		if err := d.apDownLocked(); err != nil {
			return err
		}
	}

	if !mode.HasStation() {
		if _, err := d.executor.Execute("nmcli", "device", "disconnect", d.iface); err != nil && !isNotActive(err) {
			return err
		}
	}
	d.mode = mode
	return nil
}

func (d *NMCLIDriver) apUpLocked() error {
	if !d.apAddr.IsAssigned() {
		return errors.New("access point address not configured")
	}
	if _, err := d.executor.Execute("ip", "link", "show", d.apIface); err != nil {
		if _, err := d.executor.Execute("iw", "dev", d.iface, "interface", "add", d.apIface, "type", "__ap"); err != nil {
			return err
		}
	}

	// Recreate the profile so SSID, key and address changes always apply.
	_, _ = d.executor.Execute("nmcli", "connection", "delete", APConnectionName)

	args := []string{
		"connection", "add",
		"type", "wifi",
		"ifname", d.apIface,
		"con-name", APConnectionName,
		"autoconnect", "no",
		"ssid", d.ap.SSID,
		"mode", "ap",
		"ipv4.method", "shared",
		"ipv4.addresses", d.apAddr.IP + "/" + strconv.Itoa(maskBits(d.apAddr.Mask)),
		"wifi.band", "bg",
	}
	if d.ap.Key != "" {
		args = append(args, "wifi-sec.key-mgmt", keyMgmt(d.ap.Auth), "wifi-sec.psk", d.ap.Key)
	}
	if _, err := d.executor.Execute("nmcli", args...); err != nil {
		return err
	}
	if _, err := d.executor.Execute("nmcli", "connection", "up", APConnectionName); err != nil {
		return err
	}
	d.apActive = true
	return nil
}

func (d *NMCLIDriver) apDownLocked() error {
	_, err := d.executor.Execute("nmcli", "connection", "down", APConnectionName)
	if err != nil && !isNotActive(err) {
		return err
	}
	d.apActive = false
	return nil
}

func (d *NMCLIDriver) Address(id InterfaceID) (InterfaceAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == InterfaceAccessPoint {
		if !d.apActive {
			return Unassigned, nil
		}
		return d.apAddr, nil
	}

	out, err := d.executor.Execute("nmcli", "-t", "-f", "IP4.ADDRESS,IP4.GATEWAY,IP4.DNS", "device", "show", d.iface)
	if err != nil {
		return Unassigned, err
	}
	return parseDeviceAddress(string(out)), nil
}

// parseDeviceAddress reads `nmcli -t -f IP4.ADDRESS,IP4.GATEWAY,IP4.DNS device show` output.
func parseDeviceAddress(output string) InterfaceAddress {
	addr := Unassigned
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok || value == "" || value == "--" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "IP4.ADDRESS") && addr.IP == network.UnassignedIP:
			ip, ipNet, err := net.ParseCIDR(value)
			if err != nil || ip.To4() == nil {
				continue
			}
			addr.IP = ip.String()
			addr.Mask = net.IP(ipNet.Mask).String()
		case key == "IP4.GATEWAY":
			addr.Gateway = value
		case strings.HasPrefix(key, "IP4.DNS") && addr.DNS == network.UnassignedIP:
			addr.DNS = value
		}
	}
	return addr
}

func (d *NMCLIDriver) SetAddress(id InterfaceID, addr InterfaceAddress) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == InterfaceAccessPoint {
		d.apAddr = addr
		if !addr.IsAssigned() && d.apActive {
			return d.apDownLocked()
		}
		return nil
	}

	_, err := d.executor.Execute("nmcli", "device", "modify", d.iface,
		"ipv4.method", "manual",
		"ipv4.addresses", addr.IP+"/"+strconv.Itoa(maskBits(addr.Mask)),
		"ipv4.gateway", addr.Gateway,
		"ipv4.dns", addr.DNS)
	return err
}

func (d *NMCLIDriver) UseDHCP(id InterfaceID) error {
	if id == InterfaceAccessPoint {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.executor.Execute("nmcli", "device", "modify", d.iface, "ipv4.method", "auto")
	if err != nil && !isNotActive(err) {
		return err
	}
	return nil
}

func (d *NMCLIDriver) HardwareAddr() (net.HardwareAddr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := d.executor.Execute("cat", "/sys/class/net/"+d.iface+"/address")
	if err != nil {
		return nil, err
	}
	return net.ParseMAC(strings.TrimSpace(string(out)))
}

func (d *NMCLIDriver) Scan(ctx context.Context) ([]Network, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out, err := d.executor.ExecuteWithTimeout(remaining(ctx, 15*time.Second),
		"nmcli", "-t", "-f", "SSID,BSSID,SIGNAL,CHAN,SECURITY", "device", "wifi", "list", "ifname", d.iface, "--rescan", "yes")
	if err != nil {
		return nil, err
	}
	return parseScan(string(out)), nil
}

// parseScan reads terse `nmcli device wifi list` output. Hidden networks are skipped.
func parseScan(output string) []Network {
	var networks []Network
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitTerse(line)
		if len(fields) < 5 || fields[0] == "" {
			continue
		}
		signal, _ := strconv.Atoi(fields[2])
		channel, _ := strconv.Atoi(fields[3])
		networks = append(networks, Network{
			SSID:    fields[0],
			BSSID:   fields[1],
			RSSI:    qualityToDBm(signal),
			Channel: channel,
			Auth:    parseSecurity(fields[4]),
		})
	}
	return networks
}

// splitTerse splits a terse nmcli line on unescaped colons.
func splitTerse(line string) []string {
	var fields []string
	var b strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	return append(fields, b.String())
}

// qualityToDBm maps NetworkManager's 0-100 signal quality to an approximate RSSI.
func qualityToDBm(quality int) int {
	if quality <= 0 {
		return -100
	}
	if quality >= 100 {
		return -50
	}
	return quality/2 - 100
}

func parseSecurity(security string) AuthType {
	security = strings.ToUpper(security)
	switch {
	case strings.Contains(security, "802.1X") || strings.Contains(security, "EAP"):
		return AuthWPA2Enterprise
	case strings.Contains(security, "WPA3"):
		return AuthWPA3
	case strings.Contains(security, "WPA2"):
		return AuthWPA2
	case strings.Contains(security, "WPA"):
		return AuthWPA
	case strings.Contains(security, "WEP"):
		return AuthWEP
	default:
		return AuthOpen
	}
}

func keyMgmt(auth AuthType) string {
	if auth == AuthWPA3 {
		return "sae"
	}
	return "wpa-psk"
}

func (d *NMCLIDriver) Connect(ctx context.Context, p ConnectParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	timeout := remaining(ctx, p.Timeout)
	args := []string{"--wait", strconv.Itoa(int(timeout.Seconds()) + 1), "device", "wifi", "connect", p.SSID, "ifname", d.iface}
	if p.BSSID != "" {
		args = append(args, "bssid", p.BSSID)
	}
	if p.Key != "" {
		args = append(args, "password", p.Key)
	}
	_, err := d.executor.ExecuteWithTimeout(timeout, "nmcli", args...)
	return err
}

func (d *NMCLIDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.executor.Execute("nmcli", "device", "disconnect", d.iface)
	if err != nil && !isNotActive(err) {
		return err
	}
	return nil
}

func isNotActive(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not active") || strings.Contains(msg, "not an active") || strings.Contains(msg, "no active connection")
}

func maskBits(mask string) int {
	m := network.ParseMask(mask)
	if m == nil {
		return 24
	}
	ones, _ := m.Size()
	return ones
}

// remaining returns the time left before ctx's deadline, capped at limit.
func remaining(ctx context.Context, limit time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return time.Millisecond
		}
		if limit <= 0 || left < limit {
			return left
		}
	}
	return limit
}
