// Package client provides the Omnivore GraphQL page fetcher.
// Each FetchPage call is exactly one POST to <APIURL>/graphql; there is no
// retry, backoff, or caching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultAPIURL is the production API base. Requests go to DefaultAPIURL + "/graphql".
const DefaultAPIURL = "https://api-prod.omnivore.app/api"

// maxErrorBody bounds how much of a non-2xx body ends up in an error message.
const maxErrorBody = 512

// Prometheus metrics for Omnivore API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnivore_requests_total",
		Help: "Total Omnivore GraphQL requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "omnivore_request_duration_seconds",
		Help:    "Omnivore GraphQL request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnivore_errors_total",
		Help: "Total Omnivore fetch errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// APIURL is the API base; "/graphql" is appended to it.
	APIURL string

	// AuthToken is sent as the auth cookie (REQUIRED).
	AuthToken string

	// SearchQuery is the default search filter. Empty means no filter.
	SearchQuery string

	// Shape selects the node fields and request flags.
	Shape Shape

	// Timeout bounds each request. Zero leaves it to the transport.
	Timeout time.Duration

	// UserAgent header sent with every request.
	UserAgent string
}

// DefaultConfig returns the production configuration for the given token.
func DefaultConfig(authToken string) Config {
	return Config{
		APIURL:    DefaultAPIURL,
		AuthToken: authToken,
		Shape:     ShapeContent,
		UserAgent: "omnivore-export/0.1.0",
	}
}

// Client fetches single pages of the search connection.
type Client struct {
	httpClient *http.Client
	endpoint   string
	document   string
	config     Config
	logger     zerolog.Logger
}

// New creates a new Omnivore client.
func New(cfg Config) (*Client, error) {
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("auth token is required")
	}

	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, fmt.Errorf("api url is required")
	}

	if err := cfg.Shape.validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "omnivore-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/graphql",
		document: cfg.Shape.Document(),
		config:   cfg,
		logger:   logger,
	}, nil
}

// SearchQuery returns the configured default search filter.
func (c *Client) SearchQuery() string {
	return c.config.SearchQuery
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchPage fetches up to limit items after cursor. A nil cursor starts at the
// beginning of the result set. An empty searchQuery means no filter.
//
// A page carrying errorCodes is returned as a normal page; only transport,
// status, decode and GraphQL failures produce an error.
func (c *Client) FetchPage(ctx context.Context, cursor *string, limit int, searchQuery string) (*Page, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	body, err := json.Marshal(searchRequest{
		Query:     c.document,
		Variables: c.config.Shape.Variables(cursor, limit, searchQuery),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "auth="+c.config.AuthToken+";")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("shape", c.config.Shape.Name).
		Bool("has_cursor", cursor != nil).
		Int("limit", limit).
		Msg("Executing search request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, c.fail(&APIError{Class: ErrorClassTransport, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := resp.Status
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg = msg + ": " + s
		}
		return nil, c.fail(&APIError{Class: ErrorClassStatus, StatusCode: resp.StatusCode, Message: msg})
	}

	var env searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, c.fail(&APIError{Class: ErrorClassDecode, StatusCode: resp.StatusCode, Message: "decode response", Err: err})
	}

	if env.Data == nil || env.Data.Search == nil {
		if len(env.Errors) > 0 {
			return nil, c.fail(&APIError{Class: ErrorClassGraphQL, StatusCode: resp.StatusCode, Message: env.errorMessages()})
		}
		return nil, c.fail(&APIError{Class: ErrorClassDecode, StatusCode: resp.StatusCode, Message: "unexpected envelope", Err: ErrNoSearchResult})
	}

	// Errors next to a search result are partial errors; the page is still used.
	if len(env.Errors) > 0 {
		c.logger.Warn().
			Str("endpoint", c.endpoint).
			Str("errors", env.errorMessages()).
			Msg("Search response carried GraphQL errors")
	}

	page := env.Data.Search
	c.logger.Debug().
		Int("edges", len(page.Edges)).
		Bool("has_next_page", page.PageInfo.HasNextPage).
		Int("total_count", page.PageInfo.TotalCount).
		Dur("duration", time.Since(startTime)).
		Msg("Search page received")

	return page, nil
}

// fail records and logs err before it is returned to the caller.
func (c *Client) fail(err *APIError) error {
	errorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Err(err).
		Str("endpoint", c.endpoint).
		Str("error_class", string(err.Class)).
		Int("status", err.StatusCode).
		Msg("Search request failed")
	return err
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
