package mapper

import (
	"testing"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int }

func (*point) FacetType() string { return "point" }

type identity struct{}

func (identity) Node(ref ecs.EntityID) ecs.EntityID { return ref }
func (identity) Facet(ref ecs.Facet) ecs.Facet      { return ref }

func TestRegistry_RegisterValidates(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(Mapper{}), ErrInvalidMapper)
	assert.ErrorIs(t, r.Register(Mapper{Type: "x"}), ErrInvalidMapper)
	assert.ErrorIs(t, Register(r, "point", Typed[*point]{}), ErrInvalidMapper)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_Supported(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, Register(r, "point", Typed[*point]{
		New:  func() *point { return &point{} },
		Copy: func(src, dst *point, _ *Queue) { *dst = *src },
	}))

	missing, ok := r.Supported([]string{"point"})
	assert.True(t, ok)
	assert.Empty(t, missing)

	missing, ok = r.Supported([]string{"point", "mesh", "body"})
	assert.False(t, ok)
	assert.Equal(t, "mesh", missing)

	_, ok = r.Supported(nil)
	assert.True(t, ok, "empty composition is supported")

	r.Unregister("point")
	_, ok = r.Supported([]string{"point"})
	assert.False(t, ok)
}

func TestRegister_TypedAdapter(t *testing.T) {
	r := NewRegistry()
	var disposed, posted int
	require.NoError(t, Register(r, "point", Typed[*point]{
		New:      func() *point { return &point{} },
		Copy:     func(src, dst *point, _ *Queue) { *dst = *src },
		PostCopy: func(src, dst *point, _ Resolver) { posted++ },
		Dispose:  func(p *point) { disposed++ },
	}))
	m, ok := r.Get("point")
	require.True(t, ok)

	src := &point{X: 3, Y: 4}
	dst := m.New().(*point)
	var q Queue
	m.Copy(src, dst, &q)
	assert.Equal(t, *src, *dst)

	q.Defer(m.PostCopy, src, dst)
	q.Run(identity{})
	m.Dispose(dst)
	assert.Equal(t, 1, posted)
	assert.Equal(t, 1, disposed)
}

func TestQueue_RunsOnceInOrder(t *testing.T) {
	var q Queue
	var order []int
	mk := func(n int) PostCopyFunc {
		return func(_, _ ecs.Facet, _ Resolver) { order = append(order, n) }
	}
	q.Defer(mk(1), nil, nil)
	q.Defer(func(_, _ ecs.Facet, _ Resolver) {
		order = append(order, 2)
		q.Defer(mk(4), nil, nil)
	}, nil, nil)
	q.Defer(mk(3), nil, nil)
	q.Defer(nil, nil, nil)
	assert.Equal(t, 3, q.Len())

	q.Run(identity{})
	assert.Equal(t, []int{1, 2, 3, 4}, order)
	assert.Equal(t, 0, q.Len())

	q.Run(identity{})
	assert.Len(t, order, 4, "units never run twice")
}
