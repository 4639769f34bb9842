// Package facet contains the stock facet types and their state mappers.
package facet

import (
	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/mapper"
)

const (
	TypeTransform = "transform"
	TypeTag       = "tag"
	TypeLink      = "link"
	TypeFollow    = "follow"
	TypeCounter   = "counter"
)

// Transform is a node's placement.
type Transform struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Z     float64 `yaml:"z"`
	Angle float64 `yaml:"angle"`
	Scale float64 `yaml:"scale"`
}

func (*Transform) FacetType() string { return TypeTransform }

// Tag names a node and carries free-form labels.
type Tag struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

func (*Tag) FacetType() string { return TypeTag }

// Link references another node, usually inside the same tree.
type Link struct {
	Target ecs.EntityID `yaml:"-"`
	Path   string       `yaml:"target"` // prefab-relative, bound at spawn
}

func (*Link) FacetType() string { return TypeLink }

// Follow references the Transform of another node.
type Follow struct {
	Target *Transform `yaml:"-"`
	Path   string     `yaml:"target"`
	Lag    float64    `yaml:"lag"`
}

func (*Follow) FacetType() string { return TypeFollow }

// Counter tracks how often a node instance was used. Retirements is owned
// by the instance and survives recycling.
type Counter struct {
	Value       int `yaml:"value"`
	Retirements int `yaml:"-"`
}

func (*Counter) FacetType() string { return TypeCounter }

// RegisterAll installs the mappers of every stock facet type.
func RegisterAll(reg *mapper.Registry) error {
	if err := mapper.Register(reg, TypeTransform, mapper.Typed[*Transform]{
		New:  func() *Transform { return &Transform{Scale: 1} },
		Copy: func(src, dst *Transform, _ *mapper.Queue) { *dst = *src },
	}); err != nil {
		return err
	}
	if err := mapper.Register(reg, TypeTag, mapper.Typed[*Tag]{
		New: func() *Tag { return &Tag{} },
		Copy: func(src, dst *Tag, _ *mapper.Queue) {
			dst.Name = src.Name
			dst.Labels = append(dst.Labels[:0], src.Labels...)
		},
	}); err != nil {
		return err
	}
	if err := mapper.Register(reg, TypeLink, mapper.Typed[*Link]{
		New: func() *Link { return &Link{} },
		Copy: func(src, dst *Link, _ *mapper.Queue) {
			dst.Path = src.Path
			dst.Target = src.Target
		},
		PostCopy: func(src, dst *Link, r mapper.Resolver) {
			dst.Target = r.Node(src.Target)
		},
	}); err != nil {
		return err
	}
	if err := mapper.Register(reg, TypeFollow, mapper.Typed[*Follow]{
		New: func() *Follow { return &Follow{} },
		Copy: func(src, dst *Follow, _ *mapper.Queue) {
			dst.Path = src.Path
			dst.Lag = src.Lag
			dst.Target = src.Target
		},
		PostCopy: func(src, dst *Follow, r mapper.Resolver) {
			if src.Target == nil {
				dst.Target = nil
				return
			}
			if t, ok := r.Facet(src.Target).(*Transform); ok {
				dst.Target = t
			}
		},
	}); err != nil {
		return err
	}
	return mapper.Register(reg, TypeCounter, mapper.Typed[*Counter]{
		New:  func() *Counter { return &Counter{} },
		Copy: func(src, dst *Counter, _ *mapper.Queue) { dst.Value = src.Value },
		Dispose: func(c *Counter) {
			c.Value = 0
			c.Retirements++
		},
	})
}
