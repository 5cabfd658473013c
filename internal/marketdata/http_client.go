package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"portfolio-risk-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements PriceHistoryProvider against a JSON
// end-of-day price API: GET {base}/eod/{ticker}?from=...&to=...
type HTTPClient struct {
	baseURL     string
	apiToken    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithAPIToken sets the token sent with every request.
func WithAPIToken(token string) ClientOption {
	return func(c *HTTPClient) {
		c.apiToken = token
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a price history client for baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// eodBar is one row of the upstream EOD response.
type eodBar struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// GetDailyHistory fetches daily closes for ticker within [from, to].
// Transport failures and rate limits are retried with exponential
// backoff; a 404 or empty body means the ticker has no usable history
// and is not retried.
func (c *HTTPClient) GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*domain.AssetSeries, error) {
	endpoint := fmt.Sprintf("%s/eod/%s?%s", c.baseURL, url.PathEscape(ticker), url.Values{
		"from": []string{from.Format("2006-01-02")},
		"to":   []string{to.Format("2006-01-02")},
		"fmt":  []string{"json"},
	}.Encode())

	body, err := c.get(ctx, endpoint, ticker)
	if err != nil {
		return nil, err
	}

	var bars []eodBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed response: %v", ErrDataUnavailable, ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: empty history", ErrDataUnavailable, ticker)
	}

	points := make([]domain.PricePoint, 0, len(bars))
	for _, bar := range bars {
		day, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad date %q", ErrDataUnavailable, ticker, bar.Date)
		}
		if bar.Close <= 0 {
			// Upstream sometimes reports halted days as zero; drop them.
			continue
		}
		points = append(points, domain.PricePoint{Date: day, Close: bar.Close})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return &domain.AssetSeries{Ticker: ticker, Points: points}, nil
}

// get performs one GET with retries and exponential backoff.
func (c *HTTPClient) get(ctx context.Context, endpoint, ticker string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			// Unknown ticker is terminal, not retried
			return nil, fmt.Errorf("%w: %s: not found", ErrDataUnavailable, ticker)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
		default:
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, fmt.Errorf("%w: %s: max retries exceeded: %v", ErrDataUnavailable, ticker, lastErr)
}

var _ PriceHistoryProvider = (*HTTPClient)(nil)
