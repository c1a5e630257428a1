package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reviewscout/internal/adapters/fetch"
	"reviewscout/internal/domain"
)

func testConfig() fetch.Config {
	return fetch.Config{
		Retries:       3,
		BackoffBase:   time.Millisecond,
		BackoffFactor: 1.0,
		RPS:           1000,
		// PolitenessMax zero keeps tests fast.
	}
}

func TestFetchTextSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := fetch.New(testConfig())
	body, err := c.FetchText(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if body != "<html>ok</html>" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchTextRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	c := fetch.New(testConfig())
	body, err := c.FetchText(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if body != "finally" {
		t.Fatalf("body = %q", body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestFetchTextExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := fetch.New(testConfig())
	_, err := c.FetchText(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type %T", err)
	}
	if fe.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", fe.Status)
	}
	// 1 initial + 3 retries.
	if got := calls.Load(); got != 4 {
		t.Fatalf("calls = %d, want 4", got)
	}
}

func TestFetchTextNonRetryableFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := fetch.New(testConfig())
	_, err := c.FetchText(context.Background(), srv.URL, nil)
	var fe *domain.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchTextRelayWrapsURL(t *testing.T) {
	var gotURL, gotKey, gotRender string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotURL, gotKey, gotRender = q.Get("url"), q.Get("apikey"), q.Get("js_render")
		w.Write([]byte("relayed"))
	}))
	defer relay.Close()

	cfg := testConfig()
	cfg.Relay = fetch.RelayConfig{
		URL:    relay.URL,
		APIKey: "test-key",
		Params: map[string]string{"js_render": "true"},
	}
	c := fetch.New(cfg)
	body, err := c.FetchText(context.Background(), "https://example.com/reviews",
		&domain.FetchOptions{UseRelay: true})
	if err != nil {
		t.Fatal(err)
	}
	if body != "relayed" {
		t.Fatalf("body = %q", body)
	}
	if gotURL != "https://example.com/reviews" || gotKey != "test-key" || gotRender != "true" {
		t.Fatalf("relay params: url=%q key=%q js_render=%q", gotURL, gotKey, gotRender)
	}
}

func TestFetchTextRelayDisabledWithoutKey(t *testing.T) {
	// UseRelay without a configured key falls back to a direct fetch.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "" {
			t.Error("unexpected relay wrapping")
		}
		w.Write([]byte("direct"))
	}))
	defer srv.Close()

	c := fetch.New(testConfig())
	body, err := c.FetchText(context.Background(), srv.URL, &domain.FetchOptions{UseRelay: true})
	if err != nil || body != "direct" {
		t.Fatalf("body=%q err=%v", body, err)
	}
}

func TestFetchTextContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := fetch.New(testConfig())
	if _, err := c.FetchText(ctx, srv.URL, nil); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
