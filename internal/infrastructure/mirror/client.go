// Package mirror is an HTTP client for a remote copy of the device size
// reference master. The lookup layer treats any mirror failure as
// not-found, so the client keeps a short timeout and never retries.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/matching"
	"github.com/orderhub/backend/internal/domain/shared"
)

// maxResponseSize is the maximum allowed response size from the mirror (1MB)
const maxResponseSize = 1 * 1024 * 1024

// ErrMirrorUnavailable indicates the mirror could not be reached
var ErrMirrorUnavailable = errors.New("mirror: unavailable")

// Config holds the mirror endpoint settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("mirror: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("mirror: invalid base URL: %w", err)
	}
	return nil
}

// Client queries the remote reference mirror
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a mirror client with the given configuration
func NewClient(config Config, log *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log,
	}, nil
}

var _ matching.Mirror = (*Client)(nil)

// sizeResponse is the mirror's answer for a size lookup
type sizeResponse struct {
	Brand        string `json:"brand"`
	DeviceName   string `json:"device_name"`
	SizeCategory string `json:"size_category"`
}

// FetchSize asks the mirror for the size category of a device. An
// unknown device is shared.ErrNotFound; transport and server failures
// are ErrMirrorUnavailable.
func (c *Client) FetchSize(ctx context.Context, brand, deviceName string) (string, error) {
	endpoint, err := url.Parse(c.config.BaseURL + "/sizes")
	if err != nil {
		return "", fmt.Errorf("mirror: invalid endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("brand", brand)
	query.Set("device", deviceName)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("mirror: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("mirror request failed",
			zap.String("brand", brand),
			zap.String("device", deviceName),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", shared.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: HTTP %d", ErrMirrorUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("mirror: failed to read response: %w", err)
	}

	var payload sizeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("mirror: invalid response: %w", err)
	}
	if payload.SizeCategory == "" {
		return "", shared.ErrNotFound
	}

	return payload.SizeCategory, nil
}
