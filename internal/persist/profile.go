package persist

import (
	"sort"

	"github.com/l1jgo/recycler/internal/composition"
	"github.com/l1jgo/recycler/internal/core/event"
)

type demand struct {
	out      int // instances currently outside the pool
	peak     int
	capacity int
}

// ProfileTracker records, per composition, the most instances that were
// out of their pool at once. It is fed from the event bus.
type ProfileTracker struct {
	byHandle map[*composition.Handle]*demand
}

func NewProfileTracker(bus *event.Bus) *ProfileTracker {
	t := &ProfileTracker{byHandle: make(map[*composition.Handle]*demand)}
	event.Subscribe(bus, func(e event.PoolAccessed) {
		// Hits are counted by Unpooled; a hit without one is a resize.
		if !e.Hit {
			t.take(e.Handle)
		}
	})
	event.Subscribe(bus, func(e event.Unpooled) {
		t.take(e.Handle)
		t.capacity(e.Handle, e.Size.Capacity)
	})
	event.Subscribe(bus, func(e event.Pooled) {
		d := t.get(e.Handle)
		d.out = max(d.out-1, 0)
		t.capacity(e.Handle, e.Size.Capacity)
	})
	event.Subscribe(bus, func(e event.PoolCreated) { t.capacity(e.Handle, e.Size.Capacity) })
	event.Subscribe(bus, func(e event.PoolUpdated) { t.capacity(e.Handle, e.Size.Capacity) })
	return t
}

func (t *ProfileTracker) get(h *composition.Handle) *demand {
	d, ok := t.byHandle[h]
	if !ok {
		d = &demand{}
		t.byHandle[h] = d
	}
	return d
}

func (t *ProfileTracker) take(h *composition.Handle) {
	d := t.get(h)
	d.out++
	d.peak = max(d.peak, d.out)
}

func (t *ProfileTracker) capacity(h *composition.Handle, c int) {
	d := t.get(h)
	d.capacity = max(d.capacity, c)
}

// Peak returns the recorded peak for h.
func (t *ProfileTracker) Peak(h *composition.Handle) int {
	if d, ok := t.byHandle[h]; ok {
		return d.peak
	}
	return 0
}

// Snapshot returns one row per composition that was ever taken from a pool,
// ordered by composition.
func (t *ProfileTracker) Snapshot() []ProfileRow {
	out := make([]ProfileRow, 0, len(t.byHandle))
	for h, d := range t.byHandle {
		if d.peak == 0 {
			continue
		}
		facets := make([]string, h.Len())
		copy(facets, h.Types())
		out = append(out, ProfileRow{
			Composition: h.String(),
			Facets:      facets,
			PeakCount:   d.peak,
			Capacity:    max(d.capacity, d.peak),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Composition < out[j].Composition })
	return out
}
