// Package dockermon monitors container state through the Docker Engine API
// over the local unix socket. It builds per-cycle container snapshots,
// evaluates the configured watch list for availability problems, and renders
// the docker section of the periodic report.
package dockermon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// containerSummary mirrors the fields of interest from the Engine API
// GET /containers/json response.
type containerSummary struct {
	ID     string   `json:"Id"`
	Names  []string `json:"Names"`
	Image  string   `json:"Image"`
	State  string   `json:"State"`
	Status string   `json:"Status"`
}

// Client is a minimal Docker Engine API client over the unix socket.
type Client struct {
	http *http.Client
}

// NewClient creates a client that talks to dockerd at the given socket path.
func NewClient(socketPath string) *Client {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return &Client{http: &http.Client{Transport: transport, Timeout: 10 * time.Second}}
}

// Ping checks connectivity to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "/_ping")
	return err
}

// ListContainers lists all containers, running or not.
func (c *Client) ListContainers(ctx context.Context) ([]containerSummary, error) {
	b, err := c.do(ctx, "/containers/json?all=1")
	if err != nil {
		return nil, err
	}
	var out []containerSummary
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding container list: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix"+p, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = res.Status
		}
		return nil, fmt.Errorf("docker api GET %s failed: %s", p, msg)
	}
	return b, nil
}
