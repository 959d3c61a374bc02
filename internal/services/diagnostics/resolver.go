package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

const dnsQueryTimeout = 2 * time.Second

// Resolver resolves hostnames to dotted IPv4 strings.
type Resolver interface {
	LookupIPv4(ctx context.Context, host string) (string, error)
}

// SystemResolver resolves through the host resolver configuration.
type SystemResolver struct {
	Resolver *net.Resolver
}

func (r SystemResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	ips, err := res.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("no IPv4 address for %s", host)
	}
	return ips[0].String(), nil
}

// StationResolver queries the DNS server handed to the station by DHCP so
// lookups travel over the station uplink. It falls back when the station
// has no DNS server or the query fails.
type StationResolver struct {
	radio    *radio.Controller
	fallback Resolver
	client   *dns.Client
	log      logr.Logger
}

// NewStationResolver creates a resolver bound to the station interface.
func NewStationResolver(ctrl *radio.Controller, fallback Resolver, log logr.Logger) *StationResolver {
	if fallback == nil {
		fallback = SystemResolver{}
	}
	return &StationResolver{
		radio:    ctrl,
		fallback: fallback,
		client:   &dns.Client{Net: "udp", Timeout: dnsQueryTimeout},
		log:      log.WithName("resolver"),
	}
}

func (r *StationResolver) LookupIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil && ip.To4() != nil {
		return ip.String(), nil
	}

	addr, err := r.radio.InterfaceAddress(radio.InterfaceStation)
	if err == nil && addr.IsAssigned() && network.IsAssigned(addr.DNS) {
		ip, qerr := r.query(ctx, addr.DNS, host)
		if qerr == nil {
			return ip, nil
		}
		r.log.V(1).Info("Station DNS query failed, falling back", "server", addr.DNS, "host", host, "error", qerr.Error())
	}
	return r.fallback.LookupIPv4(ctx, host)
}

func (r *StationResolver) query(ctx context.Context, server, host string) (string, error) {
	return r.queryAddr(ctx, net.JoinHostPort(server, "53"), host)
}

func (r *StationResolver) queryAddr(ctx context.Context, addr, host string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, addr)
	if err != nil {
		return "", err
	}
	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("dns %s for %s", dns.RcodeToString[in.Rcode], host)
	}
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", errors.New("no A record in answer")
}
