// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// ClientAPI defines the Zoom API operations used to collect attendance.
type ClientAPI interface {
	ListPastMeetingInstances(ctx context.Context, meetingID string) ([]PastMeetingInstance, error)
	GetPastMeeting(ctx context.Context, meetingUUID string) (*PastMeetingDetails, error)
	ListReportParticipants(ctx context.Context, meetingUUID string) ([]ReportParticipant, error)
	ListMetricsParticipants(ctx context.Context, meetingUUID string) ([]MetricsParticipant, error)
	GetMeetingRecordings(ctx context.Context, meetingUUID string) (*MeetingRecordings, error)
}

const (
	// BaseURL is the base URL for Zoom API
	BaseURL = "https://api.zoom.us/v2"
	// AuthURL is the OAuth token endpoint
	AuthURL = "https://zoom.us/oauth/token"
	// DefaultClientTimeout is the default HTTP client timeout for Zoom API requests
	DefaultClientTimeout = 30 * time.Second
	// DefaultPageSize is the page size requested from paged report endpoints
	DefaultPageSize = 300
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Client represents a Zoom API client
type Client struct {
	httpClient  *http.Client
	config      Config
	oauthConfig *clientcredentials.Config
	tokens      *TokenCache
}

// Config holds the configuration for the Zoom client
type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// Optional: override base URL for testing
	BaseURL string
	// Optional: override auth URL for testing
	AuthURL string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: shared token store; defaults to an in-process store
	TokenStore TokenStore
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Ensure that Client implements ClientAPI
var _ ClientAPI = (*Client)(nil)

// NewClient creates a new Zoom API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.AuthURL == "" {
		config.AuthURL = AuthURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}
	if config.TokenStore == nil {
		config.TokenStore = NewMemoryTokenStore()
	}

	// Zoom Server-to-Server OAuth requires the account_credentials grant with the account id
	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.AuthURL,
		EndpointParams: url.Values{
			"grant_type": []string{"account_credentials"},
			"account_id": []string{config.AccountID},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	c := &Client{
		httpClient:  httpClient,
		config:      config,
		oauthConfig: oauthConfig,
	}
	c.tokens = NewTokenCache(config.TokenStore, "zoom:token:"+config.AccountID+":"+config.ClientID, c.fetchToken)
	return c
}

// fetchToken requests a fresh access token through the instrumented HTTP client.
func (c *Client) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return c.oauthConfig.Token(ctx)
}

// getAuthenticatedClient returns an HTTP client that attaches a cached bearer token
func (c *Client) getAuthenticatedClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: c.config.Timeout,
		Transport: &oauth2.Transport{
			Base:   c.httpClient.Transport,
			Source: c.tokens.Source(ctx),
		},
	}
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode < 600)
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// ±25% jitter, never below the initial backoff
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	withJitter := time.Duration(backoff + jitter)
	if withJitter < c.config.InitialBackoff {
		withJitter = c.config.InitialBackoff
	}
	return withJitter
}

// doRequest performs an authenticated GET against the Zoom API, retrying
// transport errors, 5xx and 429 responses with exponential backoff. Any other
// response is returned to the caller, which owns the body.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		started := time.Now()
		resp, err := c.getAuthenticatedClient(ctx).Do(req)
		duration := time.Since(started)

		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		}

		if err == nil && !shouldRetry(statusCode, nil) {
			slog.DebugContext(ctx, "Zoom API request completed",
				"path", path,
				"status", statusCode,
				"duration", duration.String(),
				"attempt", attempt+1,
			)
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			lastErr = parseErrorResponse(statusCode, body)
		}

		if !shouldRetry(statusCode, err) {
			slog.ErrorContext(ctx, "Zoom API request failed (not retryable)",
				"path", path,
				"duration", duration.String(),
				"attempt", attempt+1,
				logging.ErrKey, lastErr)
			return nil, lastErr
		}
		if attempt == c.config.MaxRetries {
			break
		}

		backoff := c.calculateBackoff(attempt)
		slog.WarnContext(ctx, "Zoom API request failed, retrying",
			"path", path,
			"status", statusCode,
			"duration", duration.String(),
			"attempt", attempt+1,
			"max_retries", c.config.MaxRetries,
			"backoff", backoff.String(),
			logging.ErrKey, lastErr)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	slog.ErrorContext(ctx, "Zoom API request failed after all retries",
		"path", path,
		"attempts", c.config.MaxRetries+1,
		logging.ErrKey, lastErr,
		logging.PriorityCritical())
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// getJSON fetches path and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.doRequest(ctx, path, query)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

// APIError is a non-success response of the Zoom API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("zoom API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("zoom API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the Zoom API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// parseErrorResponse attempts to parse a Zoom API error response
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{StatusCode: statusCode, Code: errResp.Code, Message: errResp.Message}
	}
	return &APIError{StatusCode: statusCode, Message: string(body)}
}
