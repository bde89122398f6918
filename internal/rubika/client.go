// Package rubika is the outbound Rubika Bot API client. Calls are shaped by
// a per-method token bucket, retried on transient failures and always return
// a Result object; transport errors never surface to callers as Go errors.
package rubika

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://botapi.rubika.ir/v3"

// burst is the per-method token bucket capacity.
const burst = 5

// Result is a decoded API response. A missing "ok" field counts as success;
// synthesized failures always carry ok=false and an error string.
type Result map[string]any

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	if v, ok := r["ok"].(bool); ok {
		return v
	}
	return true
}

// ErrString returns the error field, if any.
func (r Result) ErrString() string {
	s, _ := r["error"].(string)
	return s
}

func errResult(method, msg string) Result {
	return Result{"ok": false, "error": msg, "method": method}
}

// Options configures a Client.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	RetryAttempts      int
	RetryBackoff       time.Duration
	RateLimitPerSecond int
}

// Client posts JSON to {base}/{token}/{method}.
type Client struct {
	token         string
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	ratePerSecond int

	http   *http.Client
	tracer trace.Tracer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Client for the given bot token.
func New(token string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.RateLimitPerSecond < 1 {
		opts.RateLimitPerSecond = 1
	}
	return &Client{
		token:         token,
		baseURL:       opts.BaseURL,
		timeout:       opts.Timeout,
		retryAttempts: opts.RetryAttempts,
		retryBackoff:  opts.RetryBackoff,
		ratePerSecond: opts.RateLimitPerSecond,
		http:          &http.Client{Timeout: opts.Timeout},
		tracer:        otel.Tracer("rubika"),
		limiters:      make(map[string]*rate.Limiter),
	}
}

// limiter returns the token bucket for a method, creating it on first use.
func (c *Client) limiter(method string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[method]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.ratePerSecond), burst)
		c.limiters[method] = l
	}
	return l
}

// Call posts payload to the method endpoint, retrying on timeouts, transport
// errors and retryable statuses (408, 429, >=500). The returned Result is a
// parsed response body or a synthesized error object; check Result.OK.
func (c *Client) Call(ctx context.Context, method string, payload map[string]any) Result {
	ctx, span := c.tracer.Start(ctx, "rubika.Call",
		trace.WithAttributes(attribute.String("rubika.method", method)))
	defer span.End()

	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errResult(method, "encode: "+err.Error())
	}
	url := c.baseURL + "/" + c.token + "/" + method

	for attempt := 1; ; attempt++ {
		if err := c.limiter(method).Wait(ctx); err != nil {
			return errResult(method, err.Error())
		}

		start := time.Now()
		resp, err := c.post(ctx, url, body)
		if err != nil {
			if ctx.Err() == nil && attempt <= c.retryAttempts {
				if !c.sleepBeforeRetry(ctx, attempt, method, err.Error()) {
					return errResult(method, ctx.Err().Error())
				}
				continue
			}
			slog.Error("api transport error", "method", method, "error", err)
			return errResult(method, err.Error())
		}
		slog.Debug("api call", "method", method, "attempt", attempt,
			"status", resp.status, "elapsed", time.Since(start))

		if retryableStatus(resp.status) && attempt <= c.retryAttempts {
			if !c.sleepBeforeRetry(ctx, attempt, method, resp.statusText) {
				return errResult(method, ctx.Err().Error())
			}
			continue
		}

		var data Result
		if err := json.Unmarshal(resp.body, &data); err != nil || data == nil {
			return Result{"ok": false, "error": "invalid_json"}
		}
		if !data.OK() {
			slog.Warn("api error response", "method", method, "error", data.ErrString())
		}
		return data
	}
}

type response struct {
	status     int
	statusText string
	body       []byte
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return &response{status: resp.StatusCode, statusText: resp.Status, body: data}, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

// sleepBeforeRetry waits base*2^(attempt-1) plus uniform jitter in [0, base).
// Returns false if the context was canceled while waiting.
func (c *Client) sleepBeforeRetry(ctx context.Context, attempt int, method, cause string) bool {
	backoff := c.retryBackoff << (attempt - 1)
	jitter := time.Duration(rand.Float64() * float64(c.retryBackoff))
	sleep := backoff + jitter
	slog.Warn("retrying api call", "method", method, "cause", cause, "attempt", attempt, "sleep", sleep)

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
