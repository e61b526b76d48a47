// Package fetcher implements the external fetch contract the orchestrator
// consumes: fetch(url, engine, headers) -> {final_url, html, text?}. Each
// entity.FetchEngine value has its own Fetcher implementation; Registry
// dispatches a target to the right one by its Engine field.
package fetcher

import (
	"context"
	"fmt"

	"sentrywatch/internal/domain/entity"
)

// Result is a fetcher's raw output, before the content pipeline extracts
// and normalizes it. Text is only populated by engines that have no HTML
// representation (shell); HTML-producing engines leave it empty and let
// the pipeline derive text from HTML.
type Result struct {
	FinalURL string
	HTML     string
	Text     string
}

// Fetcher retrieves one target's current content. Implementations own
// their own timeout, retry, and circuit-breaking; a returned error means
// fetching did not succeed after those internal attempts.
type Fetcher interface {
	Fetch(ctx context.Context, target *entity.Target) (Result, error)
}

// Registry dispatches Fetch calls to the Fetcher registered for a target's
// engine.
type Registry struct {
	engines map[entity.FetchEngine]Fetcher
}

// NewRegistry builds a Registry from one Fetcher per engine. Passing a nil
// entry for an engine the deployment never uses is fine; dispatching to it
// fails with a Config-flavored error instead of panicking.
func NewRegistry(engines map[entity.FetchEngine]Fetcher) *Registry {
	return &Registry{engines: engines}
}

// Fetch implements Fetcher by dispatching to target.Engine's registered
// implementation.
func (r *Registry) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
	f, ok := r.engines[target.Engine]
	if !ok || f == nil {
		return Result{}, fmt.Errorf("fetcher: no implementation registered for engine %q", target.Engine)
	}
	return f.Fetch(ctx, target)
}
