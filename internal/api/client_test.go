package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resultJSONRaw posts a raw body, for exercising request validation.
func (c *Client) resultJSONRaw(method, path, body string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return res, checkStatus(res)
}

func TestClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://pi.local:4100/")
	assert.Equal(t, "http://pi.local:4100", c.baseURL)
}

func TestClient_ErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "radio unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "radio unavailable")
}

func TestClient_ResultOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`{"success":false,"message":"connection timed out","kind":"ConnectionTimeout","connected":false}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).Connect(context.Background(), ConnectRequest{SSID: "Home"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "ConnectionTimeout", result.Kind)
	require.NotNil(t, result.Message)
	assert.Equal(t, "connection timed out", *result.Message)
}
