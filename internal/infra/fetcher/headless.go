package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sentrywatch/internal/domain/entity"
	"sentrywatch/internal/resilience/circuitbreaker"
)

// HeadlessFetcher implements the headless-browser engine: it launches a
// fresh headless Chrome per fetch (or connects to RemoteURL when set),
// navigates to the target, waits for network idle, and returns the
// rendered HTML. Unlike a long-lived browser manager, nothing is kept
// running between fetches — the scheduler's single cooperative loop calls
// this synchronously once per check, so there is no shared-state lifecycle
// to recycle.
type HeadlessFetcher struct {
	cfg            Config
	remoteURL      string
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewHeadlessFetcher builds a HeadlessFetcher. remoteURL, when non-empty,
// is the WebSocket URL of an already-running Chrome instance; otherwise a
// local headless Chrome is launched and torn down per fetch.
func NewHeadlessFetcher(cfg Config, remoteURL string) *HeadlessFetcher {
	return &HeadlessFetcher{
		cfg:            cfg,
		remoteURL:      remoteURL,
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
	}
}

// Fetch implements Fetcher for entity.EngineHeadlessBrowser.
func (f *HeadlessFetcher) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
	if err := validateURL(target.Locator, f.cfg.DenyPrivateIPs); err != nil {
		return Result{}, err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, target)
	})
	if err != nil {
		return Result{}, err
	}
	return result.(Result), nil
}

func (f *HeadlessFetcher) doFetch(ctx context.Context, target *entity.Target) (Result, error) {
	wsURL := f.remoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return Result{}, fmt.Errorf("launch headless chrome: %w", err)
		}
		wsURL = u
		defer l.Cleanup()
	}

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return Result{}, fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() { _ = browser.Close() }()

	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	page, err := browser.Context(fetchCtx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return Result{}, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()
	if len(target.Headers) > 0 {
		applyExtraHeaders(page, target.Headers)
	}

	if err := page.Context(fetchCtx).Navigate(target.Locator); err != nil {
		return Result{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.Context(fetchCtx).WaitLoad(); err != nil {
		return Result{}, fmt.Errorf("wait load: %w", err)
	}
	if err := page.Context(fetchCtx).WaitIdle(f.cfg.Timeout); err != nil {
		return Result{}, fmt.Errorf("wait idle: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return Result{}, fmt.Errorf("read rendered html: %w", err)
	}

	finalURL := target.Locator
	info, err := page.Info()
	if err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	return Result{FinalURL: finalURL, HTML: html}, nil
}

// applyExtraHeaders intercepts every outgoing request on page and attaches
// headers before letting it continue, since rod has no direct per-request
// header API.
func applyExtraHeaders(page *rod.Page, headers map[string]string) {
	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		for k, v := range headers {
			ctx.Request.Req().Header.Set(k, v)
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
