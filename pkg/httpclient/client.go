package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"markethub_api/config"
	"markethub_api/internal/models"
	"markethub_api/metrics"
	"markethub_api/pkg/apperr"
	"markethub_api/pkg/logger"
)

// Envelope is the common response shape of both upstream catalog APIs: a
// status discriminator plus one nested array field, "products" for the
// electronics source and "deals" for the fashion one.
type Envelope struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Products json.RawMessage `json:"products"`
	Deals    json.RawMessage `json:"deals"`
}

// RateLimitedClient wraps HTTP GET calls to one upstream catalog API with a
// token-bucket request budget and exponential-backoff retries on throttling.
// It is stateless between calls except for the last observed quota headers.
type RateLimitedClient struct {
	source      string
	baseURL     string
	apiKey      string
	apiHost     string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)
	log         logger.Logger

	mu        sync.Mutex
	lastQuota *models.Quota
}

func New(source string, src config.SourceConfig, cl config.ClientConfig, writer io.Writer) *RateLimitedClient {
	rps := src.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &RateLimitedClient{
		source:      source,
		baseURL:     strings.TrimRight(src.BaseURL, "/"),
		apiKey:      src.APIKey,
		apiHost:     src.APIHost,
		client:      &http.Client{Timeout: cl.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:  cl.MaxRetries,
		backoffBase: cl.BackoffBase,
		sleep:       time.Sleep,
		log:         logger.NewLogger(writer, fmt.Sprintf("[%sClient]", source)),
	}
}

// SetSleep overrides the backoff sleeper. Tests use it to observe delays
// without waiting them out.
func (c *RateLimitedClient) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

// Get performs one GET with retry/backoff on throttling. HTTP 429 and
// envelope messages that signal throttling are retried with delay
// backoffBase * 2^attempt; any other non-success status fails immediately.
func (c *RateLimitedClient) Get(ctx context.Context, endpoint string, params url.Values) (*Envelope, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.backoffBase * time.Duration(1<<(attempt-1)))
		}

		env, throttled, err := c.doRequest(ctx, endpoint, params)
		if err != nil {
			return nil, err
		}
		if throttled {
			c.log.Log("throttled on %s (attempt %d/%d)", endpoint, attempt+1, c.maxRetries+1)
			continue
		}
		return env, nil
	}
	return nil, &apperr.RateLimitedError{Source: c.source, Attempts: c.maxRetries + 1}
}

func (c *RateLimitedClient) doRequest(ctx context.Context, endpoint string, params url.Values) (*Envelope, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, &apperr.NetworkError{Source: c.source, Err: err}
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, &apperr.NetworkError{Source: c.source, Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	if c.apiHost != "" {
		req.Header.Set("x-api-host", c.apiHost)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstream(c.source, "transport_error", time.Since(start))
		return nil, false, &apperr.NetworkError{Source: c.source, Err: err}
	}
	defer resp.Body.Close()

	c.recordQuota(resp.Header)
	metrics.RecordUpstream(c.source, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &apperr.NetworkError{Source: c.source, StatusCode: resp.StatusCode}
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, false, fmt.Errorf("%s: decoding response from %s: %w", c.source, endpoint, err)
	}

	if !statusOK(env.Status) {
		if throttleMessage(env.Message) {
			return nil, true, nil
		}
		return nil, false, &apperr.APIError{Source: c.source, Message: env.Message}
	}
	return &env, false, nil
}

// Quota returns the rate budget from the most recent response, nil if the
// source never sent the headers.
func (c *RateLimitedClient) Quota() *models.Quota {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastQuota
}

func (c *RateLimitedClient) recordQuota(h http.Header) {
	remaining := h.Get("x-ratelimit-requests-remaining")
	if remaining == "" {
		return
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}
	q := &models.Quota{Remaining: n}
	if reset := h.Get("x-ratelimit-requests-reset"); reset != "" {
		if secs, err := strconv.Atoi(reset); err == nil {
			q.ResetAt = time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	c.mu.Lock()
	c.lastQuota = q
	c.mu.Unlock()
}

func statusOK(status string) bool {
	switch strings.ToUpper(status) {
	case "", "OK", "SUCCESS":
		return true
	}
	return false
}

func throttleMessage(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "rate limit") ||
		strings.Contains(m, "too many requests") ||
		strings.Contains(m, "throttl")
}
