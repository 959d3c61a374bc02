package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bbernstein/lacylights-wifi/internal/database/models"
	"github.com/bbernstein/lacylights-wifi/internal/services/radio"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// Client is a thin HTTP client for the WiFi API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g. http://host:port).
// The timeout must outlast a station connection attempt.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Health returns the server health document.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var resp map[string]string
	err := c.getJSON(ctx, "/health", &resp)
	return resp, err
}

// Status returns the radio status.
func (c *Client) Status(ctx context.Context) (*wifi.Status, error) {
	var resp wifi.Status
	if err := c.getJSON(ctx, "/api/wifi/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan lists visible networks.
func (c *Client) Scan(ctx context.Context) ([]radio.Network, error) {
	var resp []radio.Network
	err := c.getJSON(ctx, "/api/wifi/scan", &resp)
	return resp, err
}

// Events lists recent radio operations, newest first.
func (c *Client) Events(ctx context.Context, operation string, limit int) ([]models.RadioEvent, error) {
	q := url.Values{}
	if operation != "" {
		q.Set("operation", operation)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var resp []models.RadioEvent
	err := c.getJSON(ctx, "/api/wifi/events?"+q.Encode(), &resp)
	return resp, err
}

// OpenAccessPoint hosts a network.
func (c *Client) OpenAccessPoint(ctx context.Context, req OpenAccessPointRequest) (*wifi.ModeResult, error) {
	var resp wifi.ModeResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/ap/open", req, &resp)
	return &resp, err
}

// OpenAccessPointFromConfig hosts the persisted access point.
func (c *Client) OpenAccessPointFromConfig(ctx context.Context) (*wifi.ModeResult, error) {
	var resp wifi.ModeResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/ap/open-from-config", nil, &resp)
	return &resp, err
}

// CloseAccessPoint stops hosting.
func (c *Client) CloseAccessPoint(ctx context.Context) (*wifi.ModeResult, error) {
	var resp wifi.ModeResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/ap/close", nil, &resp)
	return &resp, err
}

// RemoveAccessPointConfig forgets the persisted access point.
func (c *Client) RemoveAccessPointConfig(ctx context.Context) (*wifi.ModeResult, error) {
	var resp wifi.ModeResult
	err := c.resultJSON(ctx, http.MethodDelete, "/api/wifi/ap/config", nil, &resp)
	return &resp, err
}

// Connect joins a network.
func (c *Client) Connect(ctx context.Context, req ConnectRequest) (*wifi.ConnectionResult, error) {
	var resp wifi.ConnectionResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/station/connect", req, &resp)
	return &resp, err
}

// ConnectFromConfig joins the first persisted network in range.
func (c *Client) ConnectFromConfig(ctx context.Context, req ConnectFromConfigRequest) (*wifi.ConnectionResult, error) {
	var resp wifi.ConnectionResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/station/connect-from-config", req, &resp)
	return &resp, err
}

// Disconnect leaves the current network.
func (c *Client) Disconnect(ctx context.Context) (*wifi.ConnectionResult, error) {
	var resp wifi.ConnectionResult
	err := c.resultJSON(ctx, http.MethodPost, "/api/wifi/station/disconnect", nil, &resp)
	return &resp, err
}

// SavedNetworks lists persisted station profiles.
func (c *Client) SavedNetworks(ctx context.Context) ([]wifi.SavedNetwork, error) {
	var resp []wifi.SavedNetwork
	err := c.getJSON(ctx, "/api/wifi/station/saved", &resp)
	return resp, err
}

// RemoveStationConfig forgets persisted networks named ssid, limited to bssid when set.
func (c *Client) RemoveStationConfig(ctx context.Context, ssid, bssid string) (*wifi.ConnectionResult, error) {
	q := url.Values{"ssid": {ssid}}
	if bssid != "" {
		q.Set("bssid", bssid)
	}
	var resp wifi.ConnectionResult
	err := c.resultJSON(ctx, http.MethodDelete, "/api/wifi/station/config?"+q.Encode(), nil, &resp)
	return &resp, err
}

// Resolve resolves host over the station link.
func (c *Client) Resolve(ctx context.Context, host string) (*ResolveResponse, error) {
	var resp ResolveResponse
	err := c.resultJSON(ctx, http.MethodGet, "/api/diagnostics/resolve?host="+url.QueryEscape(host), nil, &resp)
	return &resp, err
}

// Internet reports whether the check host resolves.
func (c *Client) Internet(ctx context.Context) (*InternetResponse, error) {
	var resp InternetResponse
	err := c.getJSON(ctx, "/api/diagnostics/internet", &resp)
	return &resp, err
}

// WaitForInternet polls server side until internet access or the timeout.
func (c *Client) WaitForInternet(ctx context.Context, timeoutSec int) (*InternetResponse, error) {
	var resp InternetResponse
	err := c.postJSON(ctx, "/api/diagnostics/internet/wait", WaitRequest{TimeoutSec: timeoutSec}, &resp)
	return &resp, err
}

// PublicAddress returns the address the internet sees for the server.
func (c *Client) PublicAddress(ctx context.Context) (string, error) {
	var resp PublicAddressResponse
	err := c.getJSON(ctx, "/api/diagnostics/public-address", &resp)
	return resp.Address, err
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	res, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return err
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	res, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return err
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// resultJSON decodes operation results, which carry their outcome in the
// body even when the status is not 2xx.
func (c *Client) resultJSON(ctx context.Context, method, path string, body any, out any) error {
	res, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusBadRequest || res.StatusCode == http.StatusInternalServerError {
		var e ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, e.Error)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("request failed: %s: %s", res.Status, strings.TrimSpace(string(data)))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	msg := strings.TrimSpace(string(body))
	if msg != "" {
		return fmt.Errorf("request failed: %s: %s", res.Status, msg)
	}
	return fmt.Errorf("request failed: %s", res.Status)
}
