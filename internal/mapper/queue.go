package mapper

import "github.com/l1jgo/recycler/internal/core/ecs"

// Unit is one deferred mapping: a post copy routine bound to its facets.
type Unit struct {
	Fn  PostCopyFunc
	Src ecs.Facet
	Dst ecs.Facet
}

// Queue collects deferred units during one request.
type Queue struct {
	units []Unit
}

// Defer queues fn to run once the clone tree is structurally complete.
func (q *Queue) Defer(fn PostCopyFunc, src, dst ecs.Facet) {
	if fn == nil {
		return
	}
	q.units = append(q.units, Unit{Fn: fn, Src: src, Dst: dst})
}

func (q *Queue) Len() int { return len(q.units) }

// Run invokes every queued unit exactly once in queue order, including
// units queued by earlier units, then empties the queue.
func (q *Queue) Run(r Resolver) {
	for i := 0; i < len(q.units); i++ {
		u := q.units[i]
		u.Fn(u.Src, u.Dst, r)
	}
	q.Reset()
}

// Reset drops pending units without running them.
func (q *Queue) Reset() {
	clear(q.units)
	q.units = q.units[:0]
}
