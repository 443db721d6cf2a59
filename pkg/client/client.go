// Package client talks to the VULX HTTP API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
	"vulx/pkg/logger"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 60
)

type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
	logger       *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// New builds a client for the API rooted at baseURL, e.g.
// https://vulx.example.com/api/v1.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		logger:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ScanOptions struct {
	Environment models.Environment `json:"environment,omitempty"`
	ScanType    string             `json:"scanType,omitempty"`
	AuthMethod  string             `json:"authMethod,omitempty"`
}

// CreateScan triggers a scan of the project and returns the PENDING record.
func (c *Client) CreateScan(ctx context.Context, projectID string, opts ScanOptions) (*models.Scan, error) {
	var scan models.Scan
	path := fmt.Sprintf("/projects/%s/scans", url.PathEscape(projectID))
	if err := c.do(ctx, http.MethodPost, path, opts, &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// GetScan returns the scan with its findings.
func (c *Client) GetScan(ctx context.Context, projectID, scanID string) (*models.Scan, error) {
	var scan models.Scan
	path := fmt.Sprintf("/projects/%s/scans/%s", url.PathEscape(projectID), url.PathEscape(scanID))
	if err := c.do(ctx, http.MethodGet, path, nil, &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// WaitForScan polls until the scan reaches COMPLETED or FAILED. It gives up
// with ErrTimeout after the configured number of attempts.
func (c *Client) WaitForScan(ctx context.Context, projectID, scanID string) (*models.Scan, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		scan, err := c.GetScan(ctx, projectID, scanID)
		if err != nil {
			return nil, err
		}
		c.logger.WithFields(logger.Fields{
			"scan_id": scanID,
			"status":  scan.Status,
			"attempt": attempt,
		}).Debug("Polled scan status")
		if scan.Status.Terminal() {
			return scan, nil
		}
	}
	return nil, fmt.Errorf("%w: scan %s still running after %d attempts", vxerrors.ErrTimeout, scanID, c.maxAttempts)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vxerrors.NewUpstreamError("vulx api", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type apiError struct {
	Error string `json:"error"`
}

func decodeError(resp *http.Response) error {
	var e apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &e) != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(raw))
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = vxerrors.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = vxerrors.ErrForbidden
	case http.StatusNotFound:
		sentinel = vxerrors.ErrNotFound
	case http.StatusUnprocessableEntity:
		sentinel = vxerrors.ErrInvalidSpec
	}
	if sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, e.Error)
	}
	return vxerrors.NewUpstreamError("vulx api", resp.StatusCode, errors.New(e.Error))
}
