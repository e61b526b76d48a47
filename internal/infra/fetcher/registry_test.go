package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

type fakeEngineFetcher struct {
	result Result
	err    error
}

func (f *fakeEngineFetcher) Fetch(ctx context.Context, target *entity.Target) (Result, error) {
	return f.result, f.err
}

func TestRegistry_Fetch_DispatchesByEngine(t *testing.T) {
	httpFetcher := &fakeEngineFetcher{result: Result{HTML: "from-http"}}
	shellFetcher := &fakeEngineFetcher{result: Result{Text: "from-shell"}}

	reg := NewRegistry(map[entity.FetchEngine]Fetcher{
		entity.EngineHTTP:  httpFetcher,
		entity.EngineShell: shellFetcher,
	})

	result, err := reg.Fetch(context.Background(), &entity.Target{Engine: entity.EngineShell})
	require.NoError(t, err)
	assert.Equal(t, "from-shell", result.Text)
}

func TestRegistry_Fetch_UnregisteredEngine(t *testing.T) {
	reg := NewRegistry(map[entity.FetchEngine]Fetcher{})
	_, err := reg.Fetch(context.Background(), &entity.Target{Engine: entity.EngineRSS})
	assert.Error(t, err)
}
