package recycle

import (
	"testing"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFromRoot_RoundTrip(t *testing.T) {
	w := ecs.NewWorld()
	root := w.NewNode()
	var leaf ecs.EntityID
	for i := 0; i < 3; i++ {
		c := w.NewNode()
		w.SetParent(c, root)
		if i == 2 {
			for j := 0; j < 2; j++ {
				g := w.NewNode()
				w.SetParent(g, c)
				leaf = g
			}
		}
	}

	buf := make([]int, 0, 4)
	path, ok := PathFromRoot(w, root, leaf, buf)
	require.True(t, ok)
	assert.Equal(t, []int{2, 1}, path)

	got, ok := NodeFromPath(w, root, path)
	require.True(t, ok)
	assert.Equal(t, leaf, got)

	path, ok = PathFromRoot(w, root, root, buf)
	require.True(t, ok)
	assert.Empty(t, path)
}

func TestPathFromRoot_OutsideTree(t *testing.T) {
	w := ecs.NewWorld()
	root := w.NewNode()
	stranger := w.NewNode()
	child := w.NewNode()
	w.SetParent(child, stranger)

	_, ok := PathFromRoot(w, root, child, nil)
	assert.False(t, ok)
	_, ok = PathFromRoot(w, root, 0, nil)
	assert.False(t, ok)

	_, ok = NodeFromPath(w, root, []int{0})
	assert.False(t, ok, "root has no children")
}
