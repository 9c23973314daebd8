package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskrank/internal/domain"
	"github.com/phrazzld/taskrank/internal/redact"
)

// Endpoint paths relative to the base URL. The trailing slash is part of the
// service's routes.
const (
	AnalyzePath = "/analyze/"
	SuggestPath = "/suggest/"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// MaxResponseBytes caps how much of a response body is kept. Longer bodies
// are cut to this size and the cut is logged.
const MaxResponseBytes = 4 << 20

// Analyzer is the behaviour the orchestration layer needs from a client.
type Analyzer interface {
	Analyze(ctx context.Context, tasks []json.RawMessage, strategy string) (*domain.AnalysisResponse, error)
	Suggest(ctx context.Context, tasks []json.RawMessage, strategy string) (*domain.SuggestionResponse, error)
	BaseURL() string
}

// Client is an HTTP client for the analysis service. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
	timeout    *time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request. Zero means no client-side limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records every request outcome in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid analysis base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}
	c.logger = c.logger.With("component", "analysis_client")
	return c, nil
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze submits tasks for scoring under strategy. tasks must be non-empty
// and strategy must be non-empty; both are checked before any network
// activity.
//
// A transport failure, or a success response that cannot be decoded, is
// returned as *domain.NetworkError. A non-success status is returned as
// *domain.ServerError carrying the body verbatim.
func (c *Client) Analyze(
	ctx context.Context,
	tasks []json.RawMessage,
	strategy string,
) (*domain.AnalysisResponse, error) {
	var resp domain.AnalysisResponse
	if err := c.post(ctx, AnalyzePath, tasks, strategy, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []domain.AnalysisResult{}
	}
	if len(resp.Results) != len(tasks) {
		c.logger.Warn("result count differs from submitted task count",
			"submitted", len(tasks),
			"results", len(resp.Results))
	}
	return &resp, nil
}

// Suggest asks the service for its own top suggestions. Errors follow the
// same taxonomy as Analyze.
func (c *Client) Suggest(
	ctx context.Context,
	tasks []json.RawMessage,
	strategy string,
) (*domain.SuggestionResponse, error) {
	var resp domain.SuggestionResponse
	if err := c.post(ctx, SuggestPath, tasks, strategy, &resp); err != nil {
		return nil, err
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []domain.AnalysisResult{}
	}
	return &resp, nil
}

// post sends one batch to path and decodes a success body into out. All
// outcomes are logged under one request id and counted in the metrics.
func (c *Client) post(ctx context.Context, path string, tasks []json.RawMessage, strategy string, out any) error {
	// Preconditions are checked before anything touches the network
	if len(tasks) == 0 {
		return domain.ErrEmptyTaskSet
	}
	if strings.TrimSpace(strategy) == "" {
		return domain.ErrEmptyStrategy
	}

	// The batch goes out as one JSON array, elements exactly as given
	body, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode task batch: %w", err)
	}

	// Strategy is an opaque query parameter, escaped but never checked
	endpoint := c.baseURL + path + "?" + url.Values{"strategy": {strategy}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build analysis request: %w", err)
	}

	// Correlate client and service logs through the request id header
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log := c.logger.With(
		"request_id", requestID,
		"endpoint", path,
		"strategy", strategy,
		"task_count", len(tasks))
	log.Debug("sending analysis request")

	// Transport failure: nothing reached us, report it as a network error.
	// The error text may carry the URL, so it is redacted before logging.
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(path, outcomeNetworkError, time.Since(start))
		log.Error("analysis request failed",
			"error", redact.Error(err),
			"duration_ms", time.Since(start).Milliseconds())
		return &domain.NetworkError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	// Read one byte past the cap so an oversized body is detected rather
	// than silently cut
	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	duration := time.Since(start)
	if err != nil {
		c.metrics.observe(path, outcomeNetworkError, duration)
		log.Error("failed to read analysis response",
			"status_code", resp.StatusCode,
			"error", redact.Error(err))
		return &domain.NetworkError{BaseURL: c.baseURL, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(payload) > MaxResponseBytes {
		payload = payload[:MaxResponseBytes]
		log.Warn("analysis response body truncated",
			"status_code", resp.StatusCode,
			"limit_bytes", MaxResponseBytes)
	}

	// Non-success status: hand the body back untouched for the user to see
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.observe(path, outcomeServerError, duration)
		log.Warn("analysis service returned an error",
			"status_code", resp.StatusCode,
			"duration_ms", duration.Milliseconds())
		return &domain.ServerError{StatusCode: resp.StatusCode, Payload: payload}
	}

	// A success status with an undecodable body is treated like an
	// unreachable service
	if err := json.Unmarshal(payload, out); err != nil {
		c.metrics.observe(path, outcomeNetworkError, duration)
		log.Error("malformed analysis response",
			"status_code", resp.StatusCode,
			"error", err)
		return &domain.NetworkError{BaseURL: c.baseURL, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.metrics.observe(path, outcomeSuccess, duration)
	log.Info("analysis request completed",
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())
	return nil
}
