// Package hubclient talks to the transcode survey service: it lists the
// platforms the service has test data for, fetches the test manifest for one
// of them, and uploads finished reports.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/BotBlake/jellybench/pkg/models"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMinInterval = time.Second

	// retryAttempts is how often a transient API failure is retried
	retryAttempts = 2

	// retryBase is the initial backoff between attempts
	retryBase = time.Second
)

// APIError is a non-2xx reply from the survey service.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed (HTTP %d)", e.Operation, e.StatusCode)
}

// retryable reports whether another attempt could succeed.
func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// Client is a survey service API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	userAgent  string
	retryBase  time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMinInterval sets the minimum interval between requests.
func WithMinInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a survey service client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		logger:     slog.Default(),
		userAgent:  "jellybench",
		retryBase:  retryBase,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPlatforms returns the platforms the service has test data for.
func (c *Client) GetPlatforms(ctx context.Context) ([]models.Platform, error) {
	var result models.PlatformsResponse
	err := c.send(ctx, http.MethodGet, c.baseURL+"/api/v1/platforms", nil, "GetPlatforms", &result)
	if err != nil {
		return nil, err
	}
	return result.Platforms, nil
}

// GetTestData fetches the test manifest for one platform.
func (c *Client) GetTestData(ctx context.Context, platformID string) (*models.TestData, error) {
	if platformID == "" {
		return nil, fmt.Errorf("platform id is empty")
	}

	query := url.Values{}
	query.Set("platform_id", platformID)
	reqURL := fmt.Sprintf("%s/api/v1/tests?%s", c.baseURL, query.Encode())

	var result models.TestData
	if err := c.send(ctx, http.MethodGet, reqURL, nil, "GetTestData", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitReport uploads a finished benchmark report. The token must be the one
// issued with the test data the report was produced from.
func (c *Client) SubmitReport(ctx context.Context, token string, report *models.BenchmarkReport) (*models.SubmitResponse, error) {
	body, err := json.Marshal(models.SubmitRequest{Token: token, Report: report})
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	var result models.SubmitResponse
	if err := c.send(ctx, http.MethodPost, c.baseURL+"/api/v1/submissions", body, "SubmitReport", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// send executes one API call with rate limiting and transient-failure
// retries. The request is rebuilt per attempt so a POST body can be replayed.
func (c *Client) send(ctx context.Context, method, reqURL string, body []byte, operation string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	backoff, err := retry.NewExponential(c.retryBase)
	if err != nil {
		return fmt.Errorf("create backoff: %w", err)
	}
	backoff = retry.WithMaxRetries(retryAttempts, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.attempt(ctx, method, reqURL, body, operation, out)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !retryable(apiErr.StatusCode) {
			return err
		}

		c.logger.Warn("survey api call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()))
		return retry.RetryableError(err)
	})
}

func (c *Client) attempt(ctx context.Context, method, reqURL string, body []byte, operation string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleError(resp, operation)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleError converts an HTTP error reply into an APIError.
func (c *Client) handleError(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := strings.TrimSpace(string(body))

	if resp.StatusCode == http.StatusTooManyRequests {
		if after := resp.Header.Get("Retry-After"); after != "" {
			message = fmt.Sprintf("rate limited, retry after %ss", after)
		}
	}

	return &APIError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// ResolvePlatform picks the supported platform entry matching an OS/arch
// pair, as reported by runtime.GOOS and runtime.GOARCH.
func ResolvePlatform(platforms []models.Platform, goos, goarch string) (models.Platform, bool) {
	for _, p := range platforms {
		if p.Supported && strings.EqualFold(p.OS, goos) && strings.EqualFold(p.Arch, goarch) {
			return p, true
		}
	}
	return models.Platform{}, false
}
