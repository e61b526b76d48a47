package fetcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.DenyPrivateIPs = false // httptest servers bind to loopback
	return cfg
}

func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testConfig())
	target := &entity.Target{Locator: srv.URL, Headers: map[string]string{"X-Api-Key": "secret"}}

	result, err := f.Fetch(t.Context(), target)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "hello")
	assert.Equal(t, srv.URL, result.FinalURL)
}

func TestHTTPFetcher_Fetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Timeout = 2 * time.Second
	f := NewHTTPFetcher(cfg)
	f.retryConfig.MaxAttempts = 1
	target := &entity.Target{Locator: srv.URL}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}

func TestHTTPFetcher_Fetch_RejectsPrivateIP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DenyPrivateIPs = true
	f := NewHTTPFetcher(cfg)
	target := &entity.Target{Locator: "http://127.0.0.1:9"}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}

func TestHTTPFetcher_Fetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 1024
	f := NewHTTPFetcher(cfg)
	f.retryConfig.MaxAttempts = 1
	target := &entity.Target{Locator: srv.URL}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}
