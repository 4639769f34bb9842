package composition

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_RollingFormula(t *testing.T) {
	want := uint64(17)
	want = want*37 + xxhash.Sum64String("A")
	want = want*37 + xxhash.Sum64String("B")
	assert.Equal(t, want, Hash([]string{"A", "B"}))
	assert.Equal(t, uint64(17), Hash(nil), "empty composition hashes to the seed")
}

func TestHandle_OrderSensitive(t *testing.T) {
	ab := Of("A", "B")
	ba := Of("B", "A")
	assert.False(t, ab.Equal(ba))
	assert.NotEqual(t, ab.Hash(), ba.Hash())
}

func TestHandle_EqualFromDistinctLists(t *testing.T) {
	l1 := []string{"transform", "tag"}
	l2 := []string{"transform", "tag"}
	a, b := Of(l1...), Of(l2...)
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b)
}

func TestHandle_CopiesInput(t *testing.T) {
	types := []string{"A", "B"}
	h := Of(types...)
	types[0] = "Z"
	assert.Equal(t, []string{"A", "B"}, h.Types())
	assert.True(t, h.Matches([]string{"A", "B"}))
	assert.Equal(t, "[A,B]", h.String())
}

func TestSet_InternNormalizes(t *testing.T) {
	s := NewSet()
	first := Of("A", "B")
	got, found := s.Intern(first)
	require.False(t, found)
	assert.Same(t, first, got)

	second := Of("A", "B")
	got, found = s.Intern(second)
	require.True(t, found)
	assert.Same(t, first, got, "equal handle interns to the stored representative")

	other, found := s.Intern(Of("B", "A"))
	assert.False(t, found)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, s.Len())
}

func TestSet_LookupAndResolve(t *testing.T) {
	s := NewSet()
	_, ok := s.Lookup([]string{"A"})
	assert.False(t, ok)

	h := s.Resolve([]string{"A"})
	again := s.Resolve([]string{"A"})
	assert.Same(t, h, again)

	found, ok := s.Lookup([]string{"A"})
	require.True(t, ok)
	assert.Same(t, h, found)
	assert.Equal(t, 1, s.Len())
}

func TestSet_EmptyComposition(t *testing.T) {
	s := NewSet()
	a := s.Resolve(nil)
	b := s.Resolve([]string{})
	assert.Same(t, a, b)
	assert.Equal(t, 0, a.Len())
}
