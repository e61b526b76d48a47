package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func TestShellFetcher_Fetch_Success(t *testing.T) {
	f := NewShellFetcher(5 * time.Second)
	target := &entity.Target{Locator: "echo -n hello-shell", Engine: entity.EngineShell}

	result, err := f.Fetch(t.Context(), target)
	require.NoError(t, err)
	assert.Equal(t, "hello-shell", result.Text)
	assert.Empty(t, result.HTML)
}

func TestShellFetcher_Fetch_NonZeroExit(t *testing.T) {
	f := NewShellFetcher(5 * time.Second)
	target := &entity.Target{Locator: "exit 1", Engine: entity.EngineShell}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}

func TestShellFetcher_Fetch_EmptyCommand(t *testing.T) {
	f := NewShellFetcher(time.Second)
	target := &entity.Target{Engine: entity.EngineShell}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}

func TestShellFetcher_Fetch_TimesOut(t *testing.T) {
	f := NewShellFetcher(50 * time.Millisecond)
	target := &entity.Target{Locator: "sleep 2", Engine: entity.EngineShell}

	_, err := f.Fetch(t.Context(), target)
	assert.Error(t, err)
}
