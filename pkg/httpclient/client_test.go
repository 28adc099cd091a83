package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"markethub_api/config"
	"markethub_api/pkg/apperr"
)

func testClient(t *testing.T, baseURL string) *RateLimitedClient {
	t.Helper()
	src := config.SourceConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		APIHost:           "test-host",
		RequestsPerSecond: 1000,
	}
	cl := config.ClientConfig{
		MaxRetries:  3,
		BackoffBase: 2 * time.Second,
		Timeout:     5 * time.Second,
	}
	c := New("techmart", src, cl, io.Discard)
	// never actually sleep in tests
	c.SetSleep(func(time.Duration) {})
	return c
}

func TestGet_BackoffDelays(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"OK","products":[{"asin":"B1"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	var delays []time.Duration
	c.SetSleep(func(d time.Duration) { delays = append(delays, d) })

	env, err := c.Get(context.Background(), "/search", url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if env == nil || len(env.Products) == 0 {
		t.Fatalf("want payload after retries, got %+v", env)
	}
	if calls.Load() != 3 {
		t.Fatalf("want 3 attempts, got %d", calls.Load())
	}
	// 429 on attempts 1 and 2: exactly base*2^0 then base*2^1
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("want %d delays, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestGet_FirstTrySuccessDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status":"OK","products":[{"asin":"B1"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	var slept int
	c.SetSleep(func(time.Duration) { slept++ })

	env, err := c.Get(context.Background(), "/search", nil)
	if err != nil {
		t.Fatal(err)
	}
	if env == nil || len(env.Products) == 0 {
		t.Fatalf("want payload, got %+v", env)
	}
	if calls.Load() != 1 {
		t.Fatalf("want a single attempt, got %d", calls.Load())
	}
	if slept != 0 {
		t.Fatalf("want no backoff on success, slept %d times", slept)
	}
}

func TestGet_ExhaustedRetriesSurfacesRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Get(context.Background(), "/search", nil)
	if !apperr.IsRateLimited(err) {
		t.Fatalf("want RateLimitedError, got %v", err)
	}
	if calls.Load() != 4 { // initial attempt + 3 retries
		t.Fatalf("want 4 attempts, got %d", calls.Load())
	}
}

func TestGet_NonSuccessStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Get(context.Background(), "/search", nil)

	var netErr *apperr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("want NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want status 500, got %d", netErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("want no retry, got %d attempts", calls.Load())
	}
}

func TestGet_EnvelopeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ERROR","message":"invalid api key"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Get(context.Background(), "/search", nil)

	var apiErr *apperr.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Message != "invalid api key" {
		t.Fatalf("want upstream message carried, got %q", apiErr.Message)
	}
}

func TestGet_ThrottleMessageRetriesLikeA429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"status":"ERROR","message":"Too many requests, slow down"}`))
			return
		}
		w.Write([]byte(`{"status":"OK","deals":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Get(context.Background(), "/deals/search", nil)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("want retry on throttle message, got %d attempts", calls.Load())
	}
}

func TestGet_ReadsQuotaHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-requests-remaining", "42")
		w.Header().Set("x-ratelimit-requests-reset", "120")
		w.Write([]byte(`{"status":"OK","products":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Get(context.Background(), "/search", nil); err != nil {
		t.Fatal(err)
	}

	q := c.Quota()
	if q == nil || q.Remaining != 42 {
		t.Fatalf("want quota remaining 42, got %+v", q)
	}
	if q.ResetAt.Before(time.Now()) {
		t.Fatalf("want reset in the future, got %v", q.ResetAt)
	}
}

func TestGet_SendsAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("x-api-host") != "test-host" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Get(context.Background(), "/search", nil); err != nil {
		t.Fatal(err)
	}
}
