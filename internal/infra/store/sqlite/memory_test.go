package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentrywatch/internal/domain/entity"
)

func TestAgentMemory_GetAgentMemory_ReturnsFreshRecordWhenAbsent(t *testing.T) {
	st := newTestStore(t)
	insertTestTarget(t, st, "t1")

	m, err := st.GetAgentMemory(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", m.TargetID)
	assert.Empty(t, m.Counters)
	assert.Empty(t, m.Notes)
}

func TestAgentMemory_UpdateThenGet_RoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	insertTestTarget(t, st, "t1")

	m := entity.NewAgentMemory("t1")
	m.Merge(&entity.MemoryUpdate{
		Counters:   map[string]int{"seen": 3},
		LastValues: map[string]any{"price": 9.99},
		Notes:      []string{"watching a recurring sale"},
	})
	require.NoError(t, st.UpdateAgentMemory(ctx, m))

	got, err := st.GetAgentMemory(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Counters["seen"])
	assert.Equal(t, []string{"watching a recurring sale"}, got.Notes)

	// A second merge+update overwrites rather than duplicating the row.
	got.Merge(&entity.MemoryUpdate{Counters: map[string]int{"seen": 4}})
	require.NoError(t, st.UpdateAgentMemory(ctx, got))

	again, err := st.GetAgentMemory(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, again.Counters["seen"])
}

func TestAgentMemory_ClearAgentMemory_ResetsToFreshRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	insertTestTarget(t, st, "t1")

	m := entity.NewAgentMemory("t1")
	m.Merge(&entity.MemoryUpdate{Counters: map[string]int{"seen": 1}})
	require.NoError(t, st.UpdateAgentMemory(ctx, m))

	require.NoError(t, st.ClearAgentMemory(ctx, "t1"))

	got, err := st.GetAgentMemory(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, got.Counters)
}

func TestGlobalMemory_GetGlobalMemory_ReturnsFreshRecordWhenAbsent(t *testing.T) {
	st := newTestStore(t)
	m, err := st.GetGlobalMemory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, m.Observations)
	assert.Empty(t, m.Weights)
}

func TestGlobalMemory_UpdateThenGet_RoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	g := entity.NewGlobalMemory()
	g.AppendObservation("competitor launched a new pricing tier", "t1", time.Now().UTC(),
		map[string]float64{"pricing": 0.3})
	require.NoError(t, st.UpdateGlobalMemory(ctx, g))

	got, err := st.GetGlobalMemory(ctx)
	require.NoError(t, err)
	require.Len(t, got.Observations, 1)
	assert.Equal(t, "competitor launched a new pricing tier", got.Observations[0].Text)
	assert.InDelta(t, 0.3, got.Weights["pricing"], 0.001)
}

func TestGlobalMemory_ClearGlobalMemory_ResetsToFreshRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	g := entity.NewGlobalMemory()
	g.AppendObservation("note", "t1", time.Now().UTC(), nil)
	require.NoError(t, st.UpdateGlobalMemory(ctx, g))

	require.NoError(t, st.ClearGlobalMemory(ctx))

	got, err := st.GetGlobalMemory(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Observations)
}
