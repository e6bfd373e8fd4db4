package roomdir

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds connection settings for the conferencing service room API.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	CACert    string // optional CA bundle for self-hosted deployments
	Insecure  bool   // skip TLS verification
}

// Client talks to the conferencing service over HTTP. It implements
// Directory.
type Client struct {
	baseURL string
	key     string
	secret  string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("roomdir: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	transport := &http.Transport{}
	if cfg.Insecure || cfg.CACert != "" {
		tc := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.Insecure {
			tc.InsecureSkipVerify = true // #nosec G402 -- explicit opt-in for dev setups
		}
		if cfg.CACert != "" {
			pem, err := os.ReadFile(cfg.CACert)
			if err != nil {
				return nil, fmt.Errorf("roomdir: read ca cert: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("roomdir: no certificates in %s", cfg.CACert)
			}
			tc.RootCAs = pool
		}
		transport.TLSClientConfig = tc
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.APIKey,
		secret:  cfg.APISecret,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.SetBasicAuth(c.key, c.secret)
	}
	return c.client.Do(req)
}

// RoomExists queries the room by name. 404 is a definite "no"; any
// transport or server error is returned so presence logic can distinguish
// failure from absence.
func (c *Client) RoomExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(name), nil)
	if err != nil {
		return false, fmt.Errorf("roomdir: query room %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("roomdir: query room %s: unexpected status %d", name, resp.StatusCode)
	}
}

type createRoomReq struct {
	Name string `json:"name"`
	RoomOptions
}

func (c *Client) CreateRoom(ctx context.Context, name string, opts RoomOptions) error {
	resp, err := c.do(ctx, http.MethodPost, "/rooms", createRoomReq{Name: name, RoomOptions: opts})
	if err != nil {
		return fmt.Errorf("roomdir: create room %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	// 409 means the room already exists, which is fine for our caller.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("roomdir: create room %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

type participantsResp struct {
	Participants []Participant `json:"participants"`
}

func (c *Client) ListParticipants(ctx context.Context, room string) ([]Participant, error) {
	resp, err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(room)+"/participants", nil)
	if err != nil {
		return nil, fmt.Errorf("roomdir: list participants for %s: %w", room, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roomdir: list participants for %s: unexpected status %d", room, resp.StatusCode)
	}
	var pr participantsResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("roomdir: decode participants for %s: %w", room, err)
	}
	return pr.Participants, nil
}
