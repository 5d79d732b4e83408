package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"virtuoso-ci/pkg/logging"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

const (
	// Every status in [retryStatusMin, retryStatusMax] is treated as transient.
	retryStatusMin = 401
	retryStatusMax = 599

	defaultMaxAttempts = 5
)

// ClientConfig holds everything needed to talk to one service environment.
type ClientConfig struct {
	// BaseURL is the API base, e.g. "https://api.virtuoso.qa/api".
	BaseURL string
	// Token is sent as a bearer token on every request. It is never refreshed.
	Token string
	// MaxAttempts is the total number of attempts per call (default 5).
	MaxAttempts int
	// BackoffFactor scales the wait before retry n (n >= 2) to factor*2^(n-1).
	// The first retry is immediate.
	BackoffFactor time.Duration
	// BackoffMax caps a single wait. Zero means no cap.
	BackoffMax time.Duration
	// Debug logs every attempt and response through pkg/logging.
	Debug bool
	// HTTPClient is the base client. Defaults to a non-pooled cleanhttp client.
	HTTPClient *http.Client
}

// Client performs authenticated, retried calls against the service.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a new Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = cleanhttp.DefaultClient()
	}
	authed := *base
	authed.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
		Base:   base.Transport,
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &authed
	rc.RetryMax = maxAttempts - 1
	rc.RetryWaitMin = 0
	rc.RetryWaitMax = cfg.BackoffMax
	rc.CheckRetry = checkRetry
	rc.Backoff = exponentialBackoff(cfg.BackoffFactor, cfg.BackoffMax)
	rc.Logger = nil
	if cfg.Debug {
		rc.Logger = logging.NewLeveledLogger("HTTP")
		rc.RequestLogHook = logRequest
		rc.ResponseLogHook = logResponse
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    rc,
	}
}

// BaseURL returns the API base the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request against an absolute url.
func (c *Client) Get(ctx context.Context, url string) (Body, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post performs a POST request. A nil or empty body sends no payload.
func (c *Client) Post(ctx context.Context, url string, body Body) (Body, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

// Put performs a PUT request. A nil or empty body sends no payload.
func (c *Client) Put(ctx context.Context, url string, body Body) (Body, error) {
	return c.do(ctx, http.MethodPut, url, body)
}

func (c *Client) do(ctx context.Context, method, url string, body Body) (Body, error) {
	var rawBody interface{}
	if len(body) > 0 {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s body: %w", method, err)
		}
		rawBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rawBody)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if rawBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	return decodeBody(method, url, resp)
}

func decodeBody(method, url string, resp *http.Response) (Body, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var body Body
	if err := decoder.Decode(&body); err != nil {
		return nil, &DecodeError{Method: method, URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	if body == nil {
		return nil, &DecodeError{Method: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("body is null")}
	}
	return body, nil
}

// checkRetry retries connection errors the way the library does by default,
// and every status code from 401 through 599.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode >= retryStatusMin && resp.StatusCode <= retryStatusMax {
		return true, nil
	}
	return false, nil
}

// exponentialBackoff waits 0 before the first retry and factor*2^n before
// retry n+1. A Retry-After header on a 413, 429 or 503 response takes
// precedence and is not capped.
func exponentialBackoff(factor, ceiling time.Duration) retryablehttp.Backoff {
	return func(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if wait, ok := retryAfter(resp); ok {
			return wait
		}
		if attemptNum <= 0 || factor <= 0 {
			return 0
		}
		wait := time.Duration(float64(factor) * math.Pow(2, float64(attemptNum)))
		if ceiling > 0 && wait > ceiling {
			wait = ceiling
		}
		return wait
	}
}

// retryAfter parses the Retry-After header of a throttling response, given
// either in seconds or as an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	switch resp.StatusCode {
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return 0, false
	}

	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}
	return 0, false
}

func logRequest(_ retryablehttp.Logger, req *http.Request, retryNumber int) {
	logging.Debug("HTTP", "%s %s (attempt %d)", req.Method, req.URL.Redacted(), retryNumber+1)
}

func logResponse(_ retryablehttp.Logger, resp *http.Response) {
	if resp.Request == nil {
		logging.Debug("HTTP", "response %s", resp.Status)
		return
	}
	logging.Debug("HTTP", "%s %s -> %s", resp.Request.Method, resp.Request.URL.Redacted(), resp.Status)
}
