// Package remote talks to the ListenUp server to fetch and push listening
// progress for cross-device sync.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRPS     = 2.0
	defaultBurst   = 2

	progressPath = "/api/v1/listening/progress/"
	maxBodyBytes = 1 << 20
	userAgent    = "ListenUp-Player/1.0"
)

// Config configures a Client.
type Config struct {
	ServerURL         string
	Token             string
	DeviceID          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client is a rate-limited sync server client.
type Client struct {
	http     *http.Client
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
	baseURL  string
	token    string
	deviceID string
}

// New creates a new sync client.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRPS
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		http:     &http.Client{Timeout: timeout},
		limiter:  ratelimit.New(rps, defaultBurst),
		logger:   logger,
		baseURL:  cfg.ServerURL,
		token:    cfg.Token,
		deviceID: cfg.DeviceID,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

// FetchServerProgress returns the server's record for bookID, or nil when the
// server has none.
func (c *Client) FetchServerProgress(ctx context.Context, bookID string) (*domain.ProgressRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, bookID, nil)
	if err != nil {
		return nil, wrapError("fetch", bookID, err)
	}
	if len(body) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, wrapError("fetch", bookID, fmt.Errorf("decode response: %w", err))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}

	var rec domain.ProgressRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, wrapError("fetch", bookID, fmt.Errorf("decode progress: %w", err))
	}
	if rec.BookID == "" {
		rec.BookID = bookID
	}
	return &rec, nil
}

// PushProgress uploads record as the server's progress for bookID.
func (c *Client) PushProgress(ctx context.Context, bookID string, record *domain.ProgressRecord) error {
	if record == nil {
		return wrapError("push", bookID, ErrBadRequest)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return wrapError("push", bookID, fmt.Errorf("encode progress: %w", err))
	}

	if _, err := c.doRequest(ctx, http.MethodPut, bookID, payload); err != nil {
		return wrapError("push", bookID, err)
	}
	return nil
}

// doRequest executes a rate-limited request against the progress endpoint.
// A 404 on GET returns a nil body and no error; on any other method it
// returns ErrNotFound.
func (c *Client) doRequest(ctx context.Context, method, bookID string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx, c.baseURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+progressPath+url.PathEscape(bookID), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	c.logger.Debug("sync request", "method", method, "book_id", bookID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return body, nil
	case http.StatusNoContent:
		return []byte{}, nil
	case http.StatusNotFound:
		if method == http.MethodGet {
			return nil, nil
		}
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
