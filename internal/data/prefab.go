package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FacetSpec declares one facet of a prefab node. Fields is decoded by the
// builder registered for Type.
type FacetSpec struct {
	Type   string    `yaml:"type"`
	Fields yaml.Node `yaml:"fields"`
}

// Prefab is a prototype tree declared in YAML.
type Prefab struct {
	Name     string      `yaml:"name"`
	Active   *bool       `yaml:"active"` // nil = active
	Facets   []FacetSpec `yaml:"facets"`
	Children []*Prefab   `yaml:"children"`
}

// IsActive reports the declared activation flag, defaulting to true.
func (p *Prefab) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Walk visits p and its descendants depth-first, root first.
func (p *Prefab) Walk(fn func(*Prefab)) {
	fn(p)
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

// FacetTypes returns the node's composition as declared.
func (p *Prefab) FacetTypes() []string {
	out := make([]string, len(p.Facets))
	for i, f := range p.Facets {
		out[i] = f.Type
	}
	return out
}

type prefabFile struct {
	Prefabs []*Prefab `yaml:"prefabs"`
}

// PrefabTable holds prototype trees indexed by name, in file order.
type PrefabTable struct {
	byName map[string]*Prefab
	order  []*Prefab
}

// Get returns the prefab with the given name, or nil.
func (t *PrefabTable) Get(name string) *Prefab {
	return t.byName[name]
}

// All returns the prefabs in declaration order.
func (t *PrefabTable) All() []*Prefab {
	return t.order
}

// Count returns the number of prefabs.
func (t *PrefabTable) Count() int {
	return len(t.order)
}

// LoadPrefabTable loads prototype trees from a YAML file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefabs: %w", err)
	}
	return ParsePrefabTable(raw)
}

// ParsePrefabTable decodes a prefab document.
func ParsePrefabTable(raw []byte) (*PrefabTable, error) {
	var f prefabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prefabs: %w", err)
	}
	t := &PrefabTable{byName: make(map[string]*Prefab, len(f.Prefabs))}
	for _, p := range f.Prefabs {
		if p.Name == "" {
			return nil, fmt.Errorf("parse prefabs: prefab without name")
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("parse prefabs: duplicate prefab %q", p.Name)
		}
		t.byName[p.Name] = p
		t.order = append(t.order, p)
	}
	return t, nil
}
