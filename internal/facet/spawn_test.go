package facet

import (
	"testing"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/data"
	"github.com/l1jgo/recycler/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefabs = `
prefabs:
  - name: tank
    facets:
      - type: transform
        fields: {x: 3, y: 4}
      - type: tag
        fields: {name: tank, labels: [armored]}
    children:
      - name: turret
        facets:
          - type: transform
            fields: {angle: 90}
          - type: link
            fields: {target: turret/barrel}
        children:
          - name: barrel
            facets:
              - type: transform
      - name: camera
        active: false
        facets:
          - type: follow
            fields: {target: turret, lag: 0.5}
  - name: broken
    facets:
      - type: link
        fields: {target: nowhere}
  - name: alien
    facets:
      - type: mesh
`

func loadPrefabs(t *testing.T) *data.PrefabTable {
	t.Helper()
	table, err := data.ParsePrefabTable([]byte(prefabs))
	require.NoError(t, err)
	return table
}

func TestSpawn_BuildsTreeAndBindsReferences(t *testing.T) {
	w := ecs.NewWorld()
	root, err := Spawn(w, loadPrefabs(t).Get("tank"), DefaultBuilders())
	require.NoError(t, err)

	facets := w.Facets(root)
	require.Len(t, facets, 2)
	tr := facets[0].(*Transform)
	assert.Equal(t, 3.0, tr.X)
	assert.Equal(t, 1.0, tr.Scale, "builder defaults survive decoding")
	assert.Equal(t, []string{"armored"}, facets[1].(*Tag).Labels)

	turret, ok := w.Find(root, "turret")
	require.True(t, ok)
	barrel, ok := w.Find(root, "turret/barrel")
	require.True(t, ok)
	camera, ok := w.Find(root, "camera")
	require.True(t, ok)
	assert.False(t, w.Active(camera))

	link := w.Facets(turret)[1].(*Link)
	assert.Equal(t, barrel, link.Target)

	follow := w.Facets(camera)[0].(*Follow)
	assert.Same(t, w.Facets(turret)[0], follow.Target)
	assert.Equal(t, 0.5, follow.Lag)
}

func TestSpawn_Errors(t *testing.T) {
	w := ecs.NewWorld()
	table := loadPrefabs(t)

	_, err := Spawn(w, table.Get("broken"), DefaultBuilders())
	assert.ErrorContains(t, err, "nowhere")

	_, err = Spawn(w, table.Get("alien"), DefaultBuilders())
	assert.ErrorContains(t, err, "mesh")
	assert.Equal(t, 0, w.Len(), "failed spawns leave nothing behind")
}

func TestRegisterAll_Mappers(t *testing.T) {
	reg := mapper.NewRegistry()
	require.NoError(t, RegisterAll(reg))
	assert.Equal(t, 5, reg.Count())

	m, ok := reg.Get(TypeTag)
	require.True(t, ok)
	src := &Tag{Name: "a", Labels: []string{"x", "y"}}
	dst := m.New().(*Tag)
	m.Copy(src, dst, &mapper.Queue{})
	assert.Equal(t, src.Labels, dst.Labels)
	src.Labels[0] = "changed"
	assert.Equal(t, "x", dst.Labels[0], "labels are copied, not shared")

	c, ok := reg.Get(TypeCounter)
	require.True(t, ok)
	counter := &Counter{Value: 7}
	c.Dispose(counter)
	assert.Equal(t, 0, counter.Value)
	assert.Equal(t, 1, counter.Retirements)
}
