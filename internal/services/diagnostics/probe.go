// Package diagnostics answers connectivity questions over the station link.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/bbernstein/lacylights-wifi/internal/services/network"
	"github.com/bbernstein/lacylights-wifi/internal/services/poll"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
)

const (
	// DefaultCheckHost is resolved to decide whether the internet is reachable.
	DefaultCheckHost = "iana.org"
	// DefaultWaitTimeout bounds WaitForInternetAccess when no timeout is given.
	DefaultWaitTimeout = 10 * time.Second
)

// ErrResolution is returned when a hostname does not resolve to an address.
var ErrResolution = errors.New("hostname resolution failed")

// Probe runs connectivity checks. While the radio is hosting and joining at
// the same time a lookup could leave over the access point, so the radio is
// held in station-only mode for the duration of each lookup.
type Probe struct {
	radio        *radio.Controller
	resolver     Resolver
	checkHost    string
	pollInterval time.Duration
	guard        sync.Locker
	log          logr.Logger
}

// NewProbe creates a probe. An empty checkHost uses DefaultCheckHost.
func NewProbe(ctrl *radio.Controller, resolver Resolver, checkHost string, log logr.Logger) *Probe {
	if checkHost == "" {
		checkHost = DefaultCheckHost
	}
	return &Probe{
		radio:        ctrl,
		resolver:     resolver,
		checkHost:    checkHost,
		pollInterval: poll.DefaultInterval,
		log:          log.WithName("diagnostics"),
	}
}

// SetGuard makes WaitForInternetAccess hold l around each individual check,
// so other radio operations may run between polls.
func (p *Probe) SetGuard(l sync.Locker) {
	p.guard = l
}

// CheckHost returns the host used by HasInternetAccess.
func (p *Probe) CheckHost() string {
	return p.checkHost
}

// ResolveHostname resolves name to a dotted IPv4 address.
func (p *Probe) ResolveHostname(ctx context.Context, name string) (string, error) {
	original, err := p.radio.Mode()
	if err == nil && original == radio.ModeDual {
		if err := p.radio.SetMode(radio.ModeStation); err != nil {
			return "", err
		}
		defer func() {
			if err := p.radio.SetMode(original); err != nil {
				p.log.Error(err, "Failed to restore radio mode", "mode", original)
			}
		}()
	}

	ip, err := p.resolver.LookupIPv4(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrResolution, name, err)
	}
	if !network.IsAssigned(ip) {
		return "", fmt.Errorf("%w: %s resolved to %s", ErrResolution, name, ip)
	}
	return ip, nil
}

// HasInternetAccess reports whether the check host resolves.
func (p *Probe) HasInternetAccess(ctx context.Context) bool {
	ip, err := p.ResolveHostname(ctx, p.checkHost)
	if err != nil {
		p.log.V(1).Info("No internet access", "host", p.checkHost, "error", err.Error())
		return false
	}
	p.log.V(1).Info("Internet access", "host", p.checkHost, "ip", ip)
	return true
}

// WaitForInternetAccess polls HasInternetAccess until it succeeds or the
// timeout elapses. A non-positive timeout uses DefaultWaitTimeout.
func (p *Probe) WaitForInternetAccess(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	err := poll.Until(ctx, p.pollInterval, timeout, func(ctx context.Context) bool {
		if p.guard != nil {
			p.guard.Lock()
			defer p.guard.Unlock()
		}
		return p.HasInternetAccess(ctx)
	})
	return err == nil
}
