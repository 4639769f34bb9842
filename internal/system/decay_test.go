package system

import (
	"testing"
	"time"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/config"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decayConfig() config.DecayConfig {
	return config.DecayConfig{
		Enabled:      true,
		Start:        10 * time.Second,
		Max:          20 * time.Second,
		Min:          time.Second,
		Growth:       3 * time.Second,
		Rate:         2 * time.Second,
		DestroyDelay: 3 * time.Second,
	}
}

func TestDecay_EvictsOneSpareOnExpiryAndRearms(t *testing.T) {
	_, svc := newService(t)
	sys := NewDecaySystem(svc, decayConfig(), zap.NewNop())

	h, err := svc.Create(composition.Of(facet.TypeTransform), pool.Size{Count: 3, Capacity: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, sys.Tracked())

	for range 9 {
		sys.Update(time.Second)
	}
	size, _ := svc.SizeOf(h)
	assert.Equal(t, 3, size.Count)

	sys.Update(time.Second)
	size, _ = svc.SizeOf(h)
	assert.Equal(t, 2, size.Count)

	threshold, timer, ok := sys.Threshold(h)
	require.True(t, ok)
	assert.Equal(t, 8*time.Second, threshold)
	assert.Equal(t, 8*time.Second, timer)
}

func TestDecay_AccessGrowsThresholdUpToMax(t *testing.T) {
	w, svc := newService(t)
	sys := NewDecaySystem(svc, decayConfig(), nil)

	proto := w.NewNode()
	w.AddFacet(proto, &facet.Tag{Name: "p"})

	clone, err := svc.Request(proto) // lazy create, then a miss
	require.NoError(t, err)
	h := svc.CompositionOf(proto)
	threshold, timer, _ := sys.Threshold(h)
	assert.Equal(t, 13*time.Second, threshold)
	assert.Equal(t, 13*time.Second, timer)

	sys.Update(5 * time.Second)
	require.NoError(t, svc.Release(clone))
	for range 5 {
		c, err := svc.Request(proto)
		require.NoError(t, err)
		require.NoError(t, svc.Release(c))
	}
	threshold, timer, _ = sys.Threshold(h)
	assert.Equal(t, 20*time.Second, threshold)
	assert.Equal(t, 20*time.Second, timer)
}

func TestDecay_EmptyPoolDeletedAfterDelay(t *testing.T) {
	_, svc := newService(t)
	sys := NewDecaySystem(svc, decayConfig(), nil)

	h, err := svc.Create(composition.Of(facet.TypeCounter), pool.Size{Count: 1, Capacity: 1})
	require.NoError(t, err)

	for range 10 {
		sys.Update(time.Second)
	}
	size, _ := svc.SizeOf(h)
	require.Zero(t, size.Count)

	// Re-armed at 8s; expires empty on the 8th tick, then waits the full 3s.
	for range 8 {
		sys.Update(time.Second)
	}
	_, timer, _ := sys.Threshold(h)
	require.LessOrEqual(t, timer, time.Duration(0))
	for range 2 {
		sys.Update(time.Second)
	}
	assert.True(t, svc.Exists(h))
	sys.Update(time.Second)
	assert.False(t, svc.Exists(h))
	assert.Zero(t, sys.Tracked())
	assert.False(t, sys.Enabled())
}

func TestDecay_TracksExistingAndDeletedPools(t *testing.T) {
	_, svc := newService(t)
	h, err := svc.Create(composition.Of(facet.TypeTag), pool.Size{Capacity: 2})
	require.NoError(t, err)

	sys := NewDecaySystem(svc, decayConfig(), nil)
	assert.Equal(t, 1, sys.Tracked())

	require.NoError(t, svc.Delete(h))
	assert.Zero(t, sys.Tracked())
	_, _, ok := sys.Threshold(h)
	assert.False(t, ok)
}

func TestDecay_AccessWhileEmptyRestartsDestroyDelay(t *testing.T) {
	w, svc := newService(t)
	cfg := decayConfig()
	cfg.Start = time.Second
	sys := NewDecaySystem(svc, cfg, nil)

	proto := w.NewNode()
	w.AddFacet(proto, &facet.Tag{Name: "p"})
	h, err := svc.Create(composition.Of(facet.TypeTag), pool.Size{Capacity: 1})
	require.NoError(t, err)

	sys.Update(time.Second) // expires empty
	sys.Update(time.Second)
	sys.Update(time.Second)
	require.True(t, svc.Exists(h))

	clone, err := svc.Request(proto)
	require.NoError(t, err)
	require.NoError(t, svc.Release(clone))
	threshold, timer, _ := sys.Threshold(h)
	assert.Equal(t, 4*time.Second, threshold)
	assert.Equal(t, threshold, timer)

	// One spare now: the next expiry evicts instead of counting down.
	for range 4 {
		sys.Update(time.Second)
	}
	assert.True(t, svc.Exists(h))
	size, _ := svc.SizeOf(h)
	assert.Zero(t, size.Count)

	// Re-armed at 2s, then the full destroy delay from the new expiry.
	for range 4 {
		sys.Update(time.Second)
	}
	assert.True(t, svc.Exists(h))
	sys.Update(time.Second)
	assert.False(t, svc.Exists(h))
}
