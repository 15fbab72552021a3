package horizons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"horizons/internal/ephemeris"
	"horizons/internal/textutil"
)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("horizons API status %d: %s", e.StatusCode, textutil.Truncate(textutil.FirstLine(e.Body), 200))
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client fetches raw Horizons responses.
type Client struct {
	baseURL       string
	retries       int
	retryInterval time.Duration
	httpClient    *http.Client
}

// ClientOption adjusts a Client.
type ClientOption func(*Client)

// WithRetryInterval sets the first wait between attempts. Later waits grow
// exponentially.
func WithRetryInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.retryInterval = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the API at baseURL. A request is attempted
// at most retries+1 times.
func NewClient(baseURL string, retries int, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       baseURL,
		retries:       max(retries, 0),
		retryInterval: time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text returns the response body of q. Transport failures and 429/5xx
// answers are retried with exponential backoff; other statuses fail at once.
func (c *Client) Text(ctx context.Context, q Query) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx)

	attempt := 0
	var text string
	op := func() error {
		attempt++
		log.Debug().Int("attempt", attempt).Str("command", q.Command).Msg("Querying Horizons")
		var err error
		text, err = c.doRequest(ctx, q)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying Horizons query")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("query horizons after %d attempts: %w", attempt, err)
	}
	return text, nil
}

// Lines returns the response body of q split into newline-stripped lines.
func (c *Client) Lines(ctx context.Context, q Query) ([]string, error) {
	text, err := c.Text(ctx, q)
	if err != nil {
		return nil, err
	}
	return slices.Collect(ephemeris.Lines(text)), nil
}

func (c *Client) doRequest(ctx context.Context, q Query) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Params().Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
