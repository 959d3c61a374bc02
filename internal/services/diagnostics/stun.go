package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

// DefaultSTUNServers are queried by PublicAddress when none are configured.
var DefaultSTUNServers = []string{"stun.l.google.com:19302", "stun.cloudflare.com:3478"}

// PublicAddress returns the address a STUN server observes for this host,
// trying servers in order until one answers.
func PublicAddress(ctx context.Context, servers []string, timeout time.Duration) (string, error) {
	if len(servers) == 0 {
		servers = DefaultSTUNServers
	}
	var lastErr error
	for _, server := range servers {
		addr, err := bindingRequest(ctx, server, timeout)
		if err == nil {
			return addr, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("STUN probe failed")
	}
	return "", lastErr
}

func stunURI(server string) (*stun.URI, error) {
	s := strings.TrimSpace(server)
	if s == "" {
		return nil, errors.New("empty STUN server")
	}
	if !strings.HasPrefix(s, "stun:") {
		s = "stun:" + s
	}
	return stun.ParseURI(s)
}

func bindingRequest(ctx context.Context, server string, timeout time.Duration) (string, error) {
	uri, err := stunURI(server)
	if err != nil {
		return "", fmt.Errorf("stun server %q: %w", server, err)
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", err
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan stun.XORMappedAddress, 1)
	fail := make(chan error, 2)

	go func() {
		var addr stun.XORMappedAddress
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr
		})
		if err != nil {
			fail <- err
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case addr := <-result:
		return addr.IP.String(), nil
	case err := <-fail:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
