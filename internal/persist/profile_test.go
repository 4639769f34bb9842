package persist

import (
	"testing"

	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/mapper"
	"github.com/l1jgo/recycler/internal/pool"
	"github.com/l1jgo/recycler/internal/recycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProfileTracker_RecordsPeakDemand(t *testing.T) {
	bus := event.NewBus()
	tracker := NewProfileTracker(bus)

	w := ecs.NewWorld()
	reg := mapper.NewRegistry()
	require.NoError(t, facet.RegisterAll(reg))
	svc := recycle.New(w, reg, bus, config.PoolConfig{DefaultCapacity: 8}, zap.NewNop())

	proto := w.NewNode()
	w.AddFacet(proto, &facet.Transform{})
	child := w.NewNode()
	w.AddFacet(child, &facet.Tag{})
	w.SetParent(child, proto)

	var clones []ecs.EntityID
	for range 3 {
		c, err := svc.Request(proto)
		require.NoError(t, err)
		clones = append(clones, c)
	}
	for _, c := range clones {
		require.NoError(t, svc.Release(c))
	}
	for range 2 {
		c, err := svc.Request(proto)
		require.NoError(t, err)
		require.NoError(t, svc.Release(c))
	}
	// A resize is not demand.
	require.NoError(t, svc.Resize(svc.CompositionOf(proto), pool.Size{Count: 3, Capacity: 16}))

	assert.Equal(t, 3, tracker.Peak(svc.CompositionOf(proto)))
	assert.Equal(t, 3, tracker.Peak(svc.CompositionOf(child)))

	rows := tracker.Snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "[tag]", rows[0].Composition)
	assert.Equal(t, []string{"tag"}, rows[0].Facets)
	assert.Equal(t, ProfileRow{Composition: "[transform]", Facets: []string{"transform"}, PeakCount: 3, Capacity: 16}, rows[1])
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_pool_profile.sql"}, names)
}
