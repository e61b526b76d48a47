package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
	"sentrywatch/internal/resilience/retry"
)

// HTTPFetcher implements the http engine: a plain GET with the target's
// extra headers attached, SSRF-validated, size-limited, and wrapped in
// retry plus a circuit breaker.
type HTTPFetcher struct {
	client         *http.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewHTTPFetcher builds an HTTPFetcher. Every redirect hop is revalidated
// for SSRF, mirroring the initial-request check.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	f := &HTTPFetcher{
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retryConfig:    retry.WebScraperConfig(),
	}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects: %d", len(via))
			}
			return validateURL(req.URL.String(), cfg.DenyPrivateIPs)
		},
	}
	return f
}

// Fetch implements Fetcher for entity.EngineHTTP.
func (f *HTTPFetcher) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
	if err := validateURL(target.Locator, f.cfg.DenyPrivateIPs); err != nil {
		return Result{}, err
	}

	var result Result
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, target)
		})
		if err != nil {
			return err
		}
		result = cbResult.(Result)
		return nil
	})
	if retryErr != nil {
		return Result{}, retryErr
	}
	return result, nil
}

func (f *HTTPFetcher) doFetch(ctx context.Context, target *entity.Target) (Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.Locator, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "sentrywatch/1.0")
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, &retry.HTTPError{StatusCode: 0, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBodySize {
		return Result{}, fmt.Errorf("response body exceeds %d byte limit", f.cfg.MaxBodySize)
	}

	finalURL := target.Locator
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{FinalURL: finalURL, HTML: string(body)}, nil
}
