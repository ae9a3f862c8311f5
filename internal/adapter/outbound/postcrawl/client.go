// Package postcrawl is a thin HTTP client for the PostCrawl content search and
// extraction API. Every non-2xx response is normalized into a *domain.APIError.
package postcrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/postcrawl-mcp/internal/domain"
)

const (
	DefaultBaseURL = "https://edge.postcrawl.com"
	DefaultTimeout = 5 * time.Minute
)

// Remote API endpoints.
const (
	PathSearch           = "/v1/search"
	PathSearchAndExtract = "/v1/search-and-extract"
	PathExtract          = "/v1/extract"
	PathHealth           = "/health"
)

const tracerName = "github.com/i2y/postcrawl-mcp/internal/adapter/outbound/postcrawl"

// ClientConfig configures a Client. A Client is bound to exactly one API key.
type ClientConfig struct {
	APIKey  string
	BaseURL string        // defaults to DefaultBaseURL
	Timeout time.Duration // defaults to DefaultTimeout

	// Transport is optional; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client calls the remote API on behalf of a single caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg ClientConfig, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		logger: logger.With("component", "postcrawl_client"),
	}
}

// Search runs a search. Page and Results default to 1 and 10.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	if err := checkPlatforms(req.SocialPlatforms); err != nil {
		return nil, err
	}
	body := domain.SearchRequest{
		Query:           req.Query,
		Page:            orDefault(req.Page, domain.DefaultPage),
		Results:         orDefault(req.Results, domain.DefaultResults),
		SocialPlatforms: req.SocialPlatforms,
	}
	var out []domain.SearchResult
	if err := c.post(ctx, "search", PathSearch, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchAndExtract searches and extracts the matching posts in one call.
func (c *Client) SearchAndExtract(ctx context.Context, req domain.SearchAndExtractRequest) ([]domain.ExtractedPost, error) {
	if err := checkPlatforms(req.SocialPlatforms); err != nil {
		return nil, err
	}
	body := domain.SearchAndExtractRequest{
		Query:           req.Query,
		Page:            orDefault(req.Page, domain.DefaultPage),
		Results:         orDefault(req.Results, domain.DefaultResults),
		SocialPlatforms: req.SocialPlatforms,
		ResponseMode:    responseMode(req.ResponseMode),
		IncludeComments: req.IncludeComments,
	}
	var out []domain.ExtractedPost
	if err := c.post(ctx, "search_and_extract", PathSearchAndExtract, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Extract extracts content from specific post URLs.
func (c *Client) Extract(ctx context.Context, req domain.ExtractRequest) ([]domain.ExtractedPost, error) {
	body := domain.ExtractRequest{
		URLs:            req.URLs,
		ResponseMode:    responseMode(req.ResponseMode),
		IncludeComments: req.IncludeComments,
	}
	var out []domain.ExtractedPost
	if err := c.post(ctx, "extract", PathExtract, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckHealth queries the health endpoint. A body that is not JSON is returned
// as {"status": "<body>"}.
func (c *Client) CheckHealth(ctx context.Context) (json.RawMessage, error) {
	respBody, _, err := c.do(ctx, "check_health", http.MethodGet, PathHealth, nil)
	if err != nil {
		return nil, err
	}
	if json.Valid(respBody) {
		return json.RawMessage(respBody), nil
	}
	wrapped, err := json.Marshal(map[string]string{"status": string(respBody)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode health status: %w", err)
	}
	return wrapped, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	respBody, requestID, err := c.do(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.Error("Failed to decode response body",
			slog.String("op", op),
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return domain.Internal(requestID, fmt.Sprintf("failed to decode %s response: %v", op, err))
	}
	return nil
}

// do executes one request and returns the body of a 2xx response together with
// the request id it logged under. Any other outcome is returned as a
// *domain.APIError.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, string, error) {
	requestID := domain.NewRequestID()
	log := c.logger.With(
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
	)

	ctx, span := c.tracer.Start(ctx, "postcrawl."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	var reqBody io.Reader
	if body != nil && method == http.MethodPost {
		jsonData, err := json.Marshal(body)
		if err != nil {
			log.Error("Failed to marshal request body", slog.Any("error", err))
			return nil, requestID, c.fail(span, domain.Internal(requestID, fmt.Sprintf("failed to encode request: %v", err)))
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, requestID, c.fail(span, domain.Internal(requestID, fmt.Sprintf("failed to create request: %v", err)))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log.Debug("Executing HTTP request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return nil, requestID, c.fail(span, domain.Internal(requestID, fmt.Sprintf("API request failed: %v", err)))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log = log.With(slog.Int("status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", slog.Any("error", err))
		return nil, requestID, c.fail(span, domain.Internal(requestID, fmt.Sprintf("failed to read response body: %v", err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp.Status, respBody, requestID, c.now())
		log.Warn("Received non-success status code",
			slog.String("kind", apiErr.Kind.String()),
			slog.String("upstream_request_id", apiErr.RequestID))
		return nil, requestID, c.fail(span, apiErr)
	}

	log.Debug("Received HTTP response", slog.Int("size", len(respBody)))
	return respBody, requestID, nil
}

func (c *Client) fail(span trace.Span, apiErr *domain.APIError) error {
	span.RecordError(apiErr)
	span.SetStatus(codes.Error, apiErr.Kind.String())
	return apiErr
}

func checkPlatforms(platforms []domain.SocialPlatform) error {
	if platforms != nil && len(platforms) == 0 {
		return domain.ValidationFailed(domain.NewRequestID(), []domain.FieldError{
			domain.InvalidValue("social_platforms", "must specify at least one platform"),
		})
	}
	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func responseMode(m domain.ResponseMode) domain.ResponseMode {
	if m == "" {
		return domain.DefaultResponseMode
	}
	return m
}
