package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
	"sentrywatch/internal/resilience/retry"
)

// RSSFetcher implements the rss engine. It fetches the feed's raw body
// (rather than gofeed's own parsed form) so the content pipeline's
// rss-items strategy can re-parse and extract from it; a gofeed parse
// here only validates that the body is a well-formed feed before handing
// it back.
type RSSFetcher struct {
	client         *http.Client
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher builds an RSSFetcher.
func NewRSSFetcher(cfg Config) *RSSFetcher {
	return &RSSFetcher{
		client:         &http.Client{Timeout: cfg.Timeout},
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch implements Fetcher for entity.EngineRSS.
func (f *RSSFetcher) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
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

func (f *RSSFetcher) doFetch(ctx context.Context, target *entity.Target) (Result, error) {
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

	if _, err := gofeed.NewParser().ParseString(string(body)); err != nil {
		return Result{}, fmt.Errorf("not a well-formed feed: %w", err)
	}

	finalURL := target.Locator
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{FinalURL: finalURL, HTML: string(body)}, nil
}
