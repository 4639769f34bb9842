package scripting

import (
	"fmt"

	"github.com/l1jgo/recycler/internal/core/ecs"
	"github.com/l1jgo/recycler/internal/facet"
	"github.com/l1jgo/recycler/internal/mapper"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

const (
	TypeScript = "script"

	// hooksGlobal is the Lua table scripts register their hooks in:
	//   scripts["door"] = { on_copy = function(src, dst) ... end }
	hooksGlobal = "scripts"
)

// Script attaches a Lua state table to a node. Name selects the hooks in
// the global scripts table.
type Script struct {
	Name  string
	State *lua.LTable
	vm    *lua.LState
}

func (*Script) FacetType() string { return TypeScript }

// CloneFacet deep-copies the state table so instantiated copies do not
// share it.
func (s *Script) CloneFacet() ecs.Facet {
	dst := &Script{Name: s.Name, State: s.vm.NewTable(), vm: s.vm}
	copyTable(s.vm, s.State, dst.State, make(map[*lua.LTable]*lua.LTable))
	return dst
}

// NewScript makes an empty script facet bound to the engine's VM.
func (e *Engine) NewScript(name string) *Script {
	return &Script{Name: name, State: e.vm.NewTable(), vm: e.vm}
}

// Register installs the script facet mapper. Copying calls the script's
// on_copy(src, dst) hook when it defines one and deep-copies the state
// otherwise; retiring calls on_dispose(state) or clears the table.
func (e *Engine) Register(reg *mapper.Registry) error {
	return mapper.Register(reg, TypeScript, mapper.Typed[*Script]{
		New:     func() *Script { return e.NewScript("") },
		Copy:    e.copyScript,
		Dispose: e.disposeScript,
	})
}

func (e *Engine) copyScript(src, dst *Script, _ *mapper.Queue) {
	dst.Name = src.Name
	clearTable(dst.State)
	if f := e.hook(src.Name, "on_copy"); f != nil {
		if e.call(src.Name, "on_copy", f, src.State, dst.State) {
			return
		}
		clearTable(dst.State)
	}
	copyTable(e.vm, src.State, dst.State, make(map[*lua.LTable]*lua.LTable))
}

func (e *Engine) disposeScript(s *Script) {
	if f := e.hook(s.Name, "on_dispose"); f != nil {
		e.call(s.Name, "on_dispose", f, s.State)
		return
	}
	clearTable(s.State)
}

// copyTable copies every key of src into dst, duplicating nested tables.
// seen maps source tables to their copies so shared and cyclic
// references survive.
func copyTable(vm *lua.LState, src, dst *lua.LTable, seen map[*lua.LTable]*lua.LTable) {
	seen[src] = dst
	src.ForEach(func(k, v lua.LValue) {
		if t, ok := v.(*lua.LTable); ok {
			c, done := seen[t]
			if !done {
				c = vm.NewTable()
				copyTable(vm, t, c, seen)
			}
			v = c
		}
		dst.RawSet(k, v)
	})
}

func clearTable(t *lua.LTable) {
	var keys []lua.LValue
	t.ForEach(func(k, _ lua.LValue) { keys = append(keys, k) })
	for _, k := range keys {
		t.RawSet(k, lua.LNil)
	}
}

type scriptFields struct {
	Name  string         `yaml:"name"`
	State map[string]any `yaml:"state"`
}

// Builder decodes a prefab script facet: a script name plus an initial
// state mapping.
func (e *Engine) Builder() facet.BuildFunc {
	return func(fields *yaml.Node) (ecs.Facet, error) {
		var sf scriptFields
		if fields != nil && fields.Kind != 0 {
			if err := fields.Decode(&sf); err != nil {
				return nil, err
			}
		}
		s := e.NewScript(sf.Name)
		for k, v := range sf.State {
			lv, err := e.toLua(v)
			if err != nil {
				return nil, fmt.Errorf("script %s state %s: %w", sf.Name, k, err)
			}
			s.State.RawSetString(k, lv)
		}
		return s, nil
	}
}

func (e *Engine) toLua(v any) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case bool:
		return lua.LBool(x), nil
	case int:
		return lua.LNumber(x), nil
	case float64:
		return lua.LNumber(x), nil
	case string:
		return lua.LString(x), nil
	case []any:
		t := e.vm.NewTable()
		for _, item := range x {
			lv, err := e.toLua(item)
			if err != nil {
				return nil, err
			}
			t.Append(lv)
		}
		return t, nil
	case map[string]any:
		t := e.vm.NewTable()
		for k, item := range x {
			lv, err := e.toLua(item)
			if err != nil {
				return nil, err
			}
			t.RawSetString(k, lv)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
