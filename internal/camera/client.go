package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client calls the capture device's HTTP API. One request per capture, a
// bounded timeout, no retries: retry policy belongs to the scheduler tick.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a device client. timeout bounds every request and
// defaults to 10s when zero.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("device base URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger.With(zap.String("component", "camera_client")),
	}, nil
}

// Capture issues POST /capture with the given settings payload.
func (c *Client) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	var result CaptureResult
	if err := c.postJSON(ctx, "/capture", req, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("Capture complete",
		zap.String("profile", req.ProfileID),
		zap.String("image_id", result.ImageID))

	return &result, nil
}

// Meter issues GET /meter, the device's full metering pass. This is the
// expensive read the settings cache tries hard to avoid.
func (c *Client) Meter(ctx context.Context) (*MeterReading, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meter", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var reading MeterReading
	if err := c.do(httpReq, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}

// Refocus issues POST /focus, triggering a full autofocus sweep.
func (c *Client) Refocus(ctx context.Context) (*FocusResult, error) {
	var result FocusResult
	if err := c.postJSON(ctx, "/focus", struct{}{}, &result); err != nil {
		return nil, err
	}

	c.logger.Info("Refocus complete", zap.Float64("lens_position", result.LensPosition))
	return &result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeviceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
