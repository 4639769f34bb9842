package system

import (
	"testing"
	"time"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/core/event"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/mapper"
	"github.com/l1jgo/recycler/internal/recycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newService(t *testing.T) (*ecs.World, *recycle.Service) {
	t.Helper()
	w := ecs.NewWorld()
	reg := mapper.NewRegistry()
	require.NoError(t, facet.RegisterAll(reg))
	svc := recycle.New(w, reg, event.NewBus(), config.PoolConfig{DefaultCapacity: 64, EnableDisposers: true}, zap.NewNop())
	return w, svc
}

func spawnPair(w *ecs.World) ecs.EntityID {
	root := w.NewNode()
	w.AddFacet(root, &facet.Transform{X: 1})
	child := w.NewNode()
	w.AddFacet(child, &facet.Tag{Name: "child"})
	w.SetParent(child, root)
	return root
}

func TestDeferredRelease_ReleasesAfterDelay(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, zap.NewNop())
	assert.False(t, sys.Enabled())

	root := spawnPair(w)
	require.NoError(t, sys.Schedule(root, 3*time.Second))
	assert.True(t, sys.Enabled())

	sys.Update(time.Second)
	sys.Update(time.Second)
	pooled, _ := svc.Contains(root)
	assert.False(t, pooled)
	assert.Equal(t, 1, sys.Pending())

	sys.Update(time.Second)
	pooled, h := svc.Contains(root)
	assert.True(t, pooled)
	assert.True(t, h.Equal(composition.Of(facet.TypeTransform)))
	assert.Zero(t, sys.Pending())
	assert.False(t, sys.Enabled())
}

func TestDeferredRelease_ZeroDelayIsImmediate(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	root := spawnPair(w)
	require.NoError(t, sys.Schedule(root, 0))
	pooled, _ := svc.Contains(root)
	assert.True(t, pooled)
	assert.Zero(t, sys.Pending())
}

func TestDeferredRelease_StaleEntriesDropped(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	gone := spawnPair(w)
	already := spawnPair(w)
	require.NoError(t, sys.Schedule(gone, time.Second))
	require.NoError(t, sys.Schedule(already, time.Second))
	require.NoError(t, sys.Schedule(already, 2*time.Second))

	w.Destroy(gone)
	sys.Update(time.Second)
	pooled, _ := svc.Contains(already)
	require.True(t, pooled)

	// Second entry for the same node must not trip double release.
	sys.Update(time.Second)
	assert.Zero(t, sys.Pending())
	assert.Equal(t, 1, svc.Stats().Releases)
}

func TestDeferredRelease_Cancel(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	a, b := spawnPair(w), spawnPair(w)
	require.NoError(t, sys.Schedule(a, time.Second))
	require.NoError(t, sys.Schedule(b, time.Second))

	assert.True(t, sys.Cancel(a))
	assert.False(t, sys.Cancel(a))
	sys.Update(time.Second)

	pooled, _ := svc.Contains(a)
	assert.False(t, pooled)
	pooled, _ = svc.Contains(b)
	assert.True(t, pooled)
}

func TestDeferredRelease_ReusedNodeNotRetiredByOldTimer(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	proto := spawnPair(w)
	a, err := svc.Request(proto)
	require.NoError(t, err)
	require.NoError(t, sys.Schedule(a, 5*time.Second))

	// Released early, then handed out again under the same id.
	require.NoError(t, svc.Release(a))
	assert.Zero(t, sys.Pending())
	b, err := svc.Request(proto)
	require.NoError(t, err)
	require.Equal(t, a, b)

	sys.Update(5 * time.Second)
	pooled, _ := svc.Contains(b)
	assert.False(t, pooled)
	assert.True(t, w.Active(b))
	assert.Equal(t, 1, svc.Stats().Releases)
}

func TestDeferredRelease_AncestorReleaseCancelsChildEntry(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	root := spawnPair(w)
	child := w.Children(root)[0]
	require.NoError(t, sys.Schedule(child, 2*time.Second))
	require.NoError(t, sys.Schedule(root, time.Second))

	sys.Update(time.Second)
	assert.Zero(t, sys.Pending())
	pooled, _ := svc.Contains(child)
	assert.True(t, pooled)
}

func TestDeferredRelease_SameTickAncestorAndChild(t *testing.T) {
	w, svc := newService(t)
	sys := NewDeferredReleaseSystem(svc, nil)

	root := spawnPair(w)
	child := w.Children(root)[0]
	require.NoError(t, sys.Schedule(root, time.Second))
	require.NoError(t, sys.Schedule(child, time.Second))

	sys.Update(time.Second)
	assert.Equal(t, 1, svc.Stats().Releases)
	pooled, _ := svc.Contains(child)
	assert.True(t, pooled)
}

func TestDeferredRelease_SchedulePooledNodeFails(t *testing.T) {
	w, svc := newService(t)
	core, logs := observer.New(zap.ErrorLevel)
	sys := NewDeferredReleaseSystem(svc, zap.New(core))

	root := spawnPair(w)
	require.NoError(t, svc.Release(root))

	err := sys.Schedule(root, time.Second)
	assert.ErrorIs(t, err, recycle.ErrDoubleRelease)
	assert.Zero(t, sys.Pending())
	assert.Equal(t, 1, logs.FilterMessage("double release").Len())

	err = sys.Schedule(ecs.EntityID(0), time.Second)
	assert.ErrorIs(t, err, recycle.ErrNodeNotFound)
}
