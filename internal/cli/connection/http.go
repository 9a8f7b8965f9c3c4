package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/tradeguard/internal/infra/buildinfo"
)

// Envelope is the response wrapper every API endpoint uses.
type Envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// APIError is a non-OK envelope. Data keeps the command result so callers
// can read fields such as needs_two_factor from a failed login.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
	Data      json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// HTTPClient calls the local API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	stream  *http.Client
}

// Option configures an HTTPClient.
type Option func(*http.Transport)

// WithTLSConfig sets the TLS config used for https:// servers.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(t *http.Transport) {
		t.TLSClientConfig = cfg
	}
}

// NewHTTPClient creates a client for server. A bare host:port gets an
// http:// scheme; unix:///path dials the daemon's local socket.
func NewHTTPClient(server, token string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if socket, ok := strings.CutPrefix(server, "unix://"); ok {
		transport := &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
		return &HTTPClient{
			baseURL: "http://unix",
			token:   token,
			client:  &http.Client{Timeout: timeout, Transport: transport},
			stream:  &http.Client{Transport: transport},
		}
	}

	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	for _, opt := range opts {
		opt(transport)
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		stream:  &http.Client{Transport: transport},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get calls GET path and decodes the envelope data into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post calls POST path with an optional JSON body and decodes the envelope
// data into out.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	return ParseResponse(resp, out)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
}

// ParseResponse decodes an envelope, returning *APIError for anything but
// code OK. The response body is closed.
func ParseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Code != "OK" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      env.Code,
			Message:   env.Message,
			RequestID: env.RequestID,
			Data:      env.Data,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}

// PathEscape escapes one path segment.
func PathEscape(s string) string {
	return url.PathEscape(s)
}
