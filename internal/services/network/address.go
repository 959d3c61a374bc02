// Package network provides address helpers shared by the radio and wifi services.
package network

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	// UnassignedIP marks an interface that has no address.
	UnassignedIP = "0.0.0.0"
	// ClassCMask is the netmask used for the access point address block.
	ClassCMask = "255.255.255.0"
)

// ErrNoWirelessInterface is returned when no interface looks like a WiFi adapter.
var ErrNoWirelessInterface = errors.New("no wireless interface found")

// IsAssigned reports whether ip is a real address rather than the sentinel.
func IsAssigned(ip string) bool {
	ip = strings.TrimSpace(ip)
	return ip != "" && ip != UnassignedIP
}

// FormatHardwareAddr renders a MAC address as uppercase colon separated hex.
func FormatHardwareAddr(hw net.HardwareAddr) string {
	return strings.ToUpper(hw.String())
}

// NormalizeBSSID canonicalizes a BSSID string so that lookups are case and
// separator independent. Unparseable values are only upper-cased.
func NormalizeBSSID(bssid string) string {
	bssid = strings.TrimSpace(bssid)
	if bssid == "" {
		return ""
	}
	hw, err := net.ParseMAC(bssid)
	if err != nil {
		return strings.ToUpper(bssid)
	}
	return FormatHardwareAddr(hw)
}

// Broadcast computes the IPv4 broadcast address of ip/mask, or "" when either
// value is not a valid IPv4 address.
func Broadcast(ip, mask string) string {
	b := calculateBroadcast(net.ParseIP(ip), ParseMask(mask))
	if b == nil {
		return ""
	}
	return b.String()
}

// ParseMask parses a dotted IPv4 netmask, returning nil when it is not one.
func ParseMask(mask string) net.IPMask {
	ip := net.ParseIP(mask).To4()
	if ip == nil {
		return nil
	}
	return net.IPv4Mask(ip[0], ip[1], ip[2], ip[3])
}

// calculateBroadcast computes the broadcast address from IP and netmask
func calculateBroadcast(ip net.IP, mask net.IPMask) net.IP {
	if ip == nil || mask == nil {
		return nil
	}

	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}

	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}

	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// GetInterfaceType guesses the type of a network interface from its name.
func GetInterfaceType(ifaceName string) string {
	name := strings.ToLower(ifaceName)

	// Common WiFi naming patterns
	if strings.HasPrefix(name, "wlan") ||
		strings.HasPrefix(name, "wl") ||
		strings.HasPrefix(name, "uap") ||
		strings.Contains(name, "wifi") ||
		strings.Contains(name, "wireless") {
		return "wifi"
	}

	// Common ethernet naming patterns
	if strings.HasPrefix(name, "eth") ||
		strings.HasPrefix(name, "en") {
		return "ethernet"
	}

	if name == "lo" {
		return "localhost"
	}
	return "other"
}

// DetectWirelessInterface returns the first non-loopback interface whose name
// looks like a WiFi adapter.
func DetectWirelessInterface() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}
	return pickWireless(interfaces)
}

func pickWireless(interfaces []net.Interface) (string, error) {
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if GetInterfaceType(iface.Name) == "wifi" {
			return iface.Name, nil
		}
	}
	return "", ErrNoWirelessInterface
}
