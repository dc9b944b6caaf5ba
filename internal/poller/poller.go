// Package poller is a small HTTP client for driving audits from the CLI:
// start a session on a running server, then poll until it settles.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/geoscope-ai/geoscope/internal/audit"
)

// Client talks to a geoscope server over HTTP.
type Client struct {
	BaseURL  string
	Token    string
	Interval time.Duration
	HTTP     *http.Client
	Logger   *log.Logger
}

// New returns a Client for baseURL. token may be empty when the server
// runs without auth.
func New(baseURL, token string, interval time.Duration) *Client {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Client{
		BaseURL:  baseURL,
		Token:    token,
		Interval: interval,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Logger:   log.New(log.Writer(), "[POLL] ", log.LstdFlags),
	}
}

type startRequest struct {
	Domain string   `json:"domain"`
	Pages  []string `json:"pages"`
}

type startResponse struct {
	SessionID  string `json:"session_id"`
	TotalPages int    `json:"total_pages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Start submits an audit and returns its session ID.
func (c *Client) Start(ctx context.Context, domain string, pages []string) (string, error) {
	body, err := json.Marshal(startRequest{Domain: domain, Pages: pages})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/audits", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", remoteError(resp)
	}
	var out startResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Snapshot fetches one session snapshot without waiting.
func (c *Client) Snapshot(ctx context.Context, sessionID string) (audit.Session, error) {
	var snap audit.Session
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/audits/"+sessionID, nil)
	if err != nil {
		return snap, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Wait polls the session until it reaches a terminal state. Cancelling ctx
// detaches the poller; the server keeps running the audit.
func (c *Client) Wait(ctx context.Context, sessionID string) (audit.Session, error) {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		snap, err := c.Snapshot(ctx, sessionID)
		if err != nil {
			return audit.Session{}, err
		}
		if snap.State.Terminal() {
			return snap, nil
		}
		c.Logger.Printf("session %s: %s (%d/%d pages)", sessionID, snap.State, snap.CompletedPageCount, len(snap.PageList))

		select {
		case <-ctx.Done():
			return audit.Session{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, er.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
