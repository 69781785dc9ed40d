package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/qwertdvert/qwertdvert/internal/daemon"
)

// Client talks to a running daemon's control endpoint. Used by the CLI
// toggle/status flags and usable by a tray application.
type Client struct {
	http *http.Client
	base string
}

func NewClient(addr string) (*Client, error) {
	network, address, err := SplitAddr(addr)
	if err != nil {
		return nil, err
	}

	switch network {
	case "unix":
		return &Client{
			base: "http://qwertdvert",
			http: &http.Client{
				Timeout: 5 * time.Second,
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, "unix", address)
					},
				},
			},
		}, nil
	default:
		return &Client{
			base: "http://" + address,
			http: &http.Client{Timeout: 5 * time.Second},
		}, nil
	}
}

func (c *Client) Status() (daemon.Status, error) {
	resp, err := c.http.Get(c.base + "/api/status")
	if err != nil {
		return daemon.Status{}, fmt.Errorf("query daemon status: %w", err)
	}
	return decodeStatus(resp)
}

func (c *Client) SetEnabled(enabled bool) (daemon.Status, error) {
	path := "/api/remap/disable"
	if enabled {
		path = "/api/remap/enable"
	}
	resp, err := c.http.Post(c.base+path, "application/json", nil)
	if err != nil {
		return daemon.Status{}, fmt.Errorf("toggle remapping: %w", err)
	}
	return decodeStatus(resp)
}

func decodeStatus(resp *http.Response) (daemon.Status, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return daemon.Status{}, fmt.Errorf("daemon returned %s", resp.Status)
	}
	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return daemon.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
