package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefabYAML = `
prefabs:
  - name: turret
    facets:
      - type: transform
        fields: {x: 1, y: 2}
      - type: tag
        fields: {name: turret}
    children:
      - name: barrel
        active: false
        facets:
          - type: transform
      - name: sight
        facets:
          - type: link
            fields: {target: barrel}
  - name: crate
    facets:
      - type: transform
`

func TestLoadPrefabTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefabs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(prefabYAML), 0o644))

	table, err := LoadPrefabTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Count())
	assert.Equal(t, "turret", table.All()[0].Name)

	turret := table.Get("turret")
	require.NotNil(t, turret)
	assert.True(t, turret.IsActive())
	assert.Equal(t, []string{"transform", "tag"}, turret.FacetTypes())
	require.Len(t, turret.Children, 2)
	assert.False(t, turret.Children[0].IsActive())

	var names []string
	turret.Walk(func(p *Prefab) { names = append(names, p.Name) })
	assert.Equal(t, []string{"turret", "barrel", "sight"}, names)

	var fields struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
	}
	require.NoError(t, turret.Facets[0].Fields.Decode(&fields))
	assert.Equal(t, 2.0, fields.Y)

	assert.Nil(t, table.Get("missing"))
}

func TestParsePrefabTable_Rejects(t *testing.T) {
	_, err := ParsePrefabTable([]byte("prefabs:\n  - facets: []\n"))
	assert.ErrorContains(t, err, "without name")

	_, err = ParsePrefabTable([]byte("prefabs:\n  - name: a\n  - name: a\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = LoadPrefabTable(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestParseGoalTable(t *testing.T) {
	table, err := ParseGoalTable([]byte(`
policy: declarative
track_undeclared: true
goals:
  - prefab: turret
    count: 4
    capacity: 8
  - facets: [transform]
    count: 10
    capacity: 10
`))
	require.NoError(t, err)
	assert.Equal(t, "declarative", table.Policy)
	assert.True(t, table.TrackUndeclared)
	require.Equal(t, 2, table.Count())
	assert.Equal(t, []string{"transform"}, table.Goals[1].Facets)

	_, err = ParseGoalTable([]byte("goals:\n  - count: 1\n    capacity: 1\n"))
	assert.ErrorContains(t, err, "exactly one")

	_, err = ParseGoalTable([]byte("goals:\n  - facets: [a]\n    count: 5\n    capacity: 1\n"))
	assert.ErrorContains(t, err, "count <= capacity")
}
