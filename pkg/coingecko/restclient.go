package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrFetchFailure is the single error kind reported for market fetches:
// transport errors and non-success statuses alike.
var ErrFetchFailure = errors.New("fetch failure")

// FetchError describes a non-success response status.
type FetchError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coingecko error: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("coingecko error: %s", e.Status)
}

// Is lets errors.Is(err, ErrFetchFailure) match any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}

type RESTClient struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
}

// Option customizes a RESTClient.
type Option func(*RESTClient)

// WithAPIKey sends key in the given header ("x-cg-demo-api-key" or "x-cg-pro-api-key").
func WithAPIKey(header, key string) Option {
	return func(c *RESTClient) {
		c.apiKeyHeader = header
		c.apiKey = key
	}
}

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RESTClient) {
		c.httpClient = hc
	}
}

func NewRESTClient(baseURL string, timeout time.Duration, opts ...Option) *RESTClient {
	c := &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// MarketsURL builds the coins/markets request URL for q.
func (c *RESTClient) MarketsURL(q MarketsQuery) string {
	params := url.Values{}
	params.Set("vs_currency", q.VsCurrency)
	params.Set("order", q.Order)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	page := q.Page
	if page <= 0 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("sparkline", strconv.FormatBool(q.Sparkline))

	if len(q.Periods) > 0 {
		values := make([]string, 0, len(q.Periods))
		for _, p := range q.Periods {
			values = append(values, p.Meta().APIValue)
		}
		params.Set("price_change_percentage", strings.Join(values, ","))
	}

	return c.baseURL + "/coins/markets?" + params.Encode()
}

// GetMarkets fetches one page of coins/markets. Any failure wraps ErrFetchFailure.
func (c *RESTClient) GetMarkets(ctx context.Context, q MarketsQuery) ([]MarketRecord, error) {
	endpoint := c.MarketsURL(q)

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.apiKeyHeader != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: making request: %w", ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    errorMessage(body),
		}
	}

	var records []MarketRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrFetchFailure, err)
	}

	return records, nil
}

// errorMessage extracts the human-readable part of an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Status.ErrorMessage != "" {
			return er.Status.ErrorMessage
		}
		if er.Error != "" {
			return er.Error
		}
	}
	return strings.TrimSpace(string(body))
}
