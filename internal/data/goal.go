package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GoalEntry is one warm-up goal. Exactly one of Prefab or Facets is set: a
// prefab goal warms every composition found in the prefab tree.
type GoalEntry struct {
	Prefab   string   `yaml:"prefab"`
	Facets   []string `yaml:"facets"`
	Count    int      `yaml:"count"`
	Capacity int      `yaml:"capacity"`
}

// GoalTable is the declared warm-up state of the pools.
type GoalTable struct {
	Policy          string      `yaml:"policy"`
	TrackUndeclared bool        `yaml:"track_undeclared"`
	Goals           []GoalEntry `yaml:"goals"`
}

// Count returns the number of goals.
func (t *GoalTable) Count() int {
	return len(t.Goals)
}

// LoadGoalTable loads warm-up goals from a YAML file.
func LoadGoalTable(path string) (*GoalTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read goals: %w", err)
	}
	return ParseGoalTable(raw)
}

// ParseGoalTable decodes a goal document.
func ParseGoalTable(raw []byte) (*GoalTable, error) {
	var t GoalTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse goals: %w", err)
	}
	for i, g := range t.Goals {
		if (g.Prefab == "") == (len(g.Facets) == 0) {
			return nil, fmt.Errorf("parse goals: goal %d needs exactly one of prefab or facets", i)
		}
		if g.Count < 0 || g.Capacity < g.Count {
			return nil, fmt.Errorf("parse goals: goal %d: need 0 <= count <= capacity, got %d/%d", i, g.Count, g.Capacity)
		}
	}
	return &t, nil
}
