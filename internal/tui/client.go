package tui

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/criollotv/criollotv/internal/catalog"
	"github.com/criollotv/criollotv/internal/httpclient"
)

// ErrServerUnavailable means the server could not be reached at all, as
// opposed to answering with an error.
var ErrServerUnavailable = errors.New("server unavailable")

// Client talks to a criollotv server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	HWID    string
	token   string
}

func NewClient(baseURL, hwid string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpclient.WithTimeout(20 * time.Second),
		HWID:    hwid,
	}
}

// Channels returns the server's channel list. A server that answered with
// the empty-state payload returns its message as the error.
func (c *Client) Channels(ctx context.Context) ([]catalog.Channel, error) {
	var body struct {
		Success  bool              `json:"success"`
		Channels []catalog.Channel `json:"channels"`
		Error    string            `json:"error"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/channels", nil, &body); err != nil && body.Error == "" {
		return nil, err
	}
	if !body.Success {
		return nil, errors.New(body.Error)
	}
	return body.Channels, nil
}

// Login asks whether this device is an admin and keeps the token if so.
func (c *Client) Login(ctx context.Context) (bool, error) {
	var body struct {
		IsAdmin bool   `json:"isAdmin"`
		Token   string `json:"token"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/auth/hwid", map[string]string{"hwid": c.HWID}, &body); err != nil {
		return false, err
	}
	c.token = body.Token
	return body.IsAdmin, nil
}

// Refresh forces the server to reload its playlist and returns the count.
func (c *Client) Refresh(ctx context.Context) (int, error) {
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Count   int    `json:"count"`
	}
	err := c.call(ctx, http.MethodPost, "/api/admin/refresh", map[string]string{"hwid": c.HWID, "token": c.token}, &body)
	if body.Error != "" {
		return 0, errors.New(body.Error)
	}
	return body.Count, err
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var rd *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()
	decErr := json.NewDecoder(resp.Body).Decode(out)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	if decErr != nil {
		return fmt.Errorf("%s %s: %w", method, path, decErr)
	}
	return nil
}

// DeviceID returns a stable fingerprint of this machine, used as the HWID.
func DeviceID() string {
	var seed string
	for _, p := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if b, err := os.ReadFile(p); err == nil && len(bytes.TrimSpace(b)) > 0 {
			seed = string(bytes.TrimSpace(b))
			break
		}
	}
	if seed == "" {
		host, _ := os.Hostname()
		seed = host + "|" + os.Getenv("USER")
	}
	sum := sha256.Sum256([]byte("criollotv|" + seed))
	return hex.EncodeToString(sum[:8])
}
