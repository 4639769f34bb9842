package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding facet hooks.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory and its facets/ subdirectory. A missing directory is not an
// error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal(hooksGlobal, vm.NewTable())

	e := &Engine{vm: vm, log: log}
	if scriptsDir == "" {
		return e, nil
	}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "facets")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// hook returns scripts[name][fn] when it is a function.
func (e *Engine) hook(name, fn string) *lua.LFunction {
	hooks, ok := e.vm.GetGlobal(hooksGlobal).(*lua.LTable)
	if !ok {
		return nil
	}
	entry, ok := hooks.RawGetString(name).(*lua.LTable)
	if !ok {
		return nil
	}
	f, _ := entry.RawGetString(fn).(*lua.LFunction)
	return f
}

// call invokes a hook with the given arguments, logging failures.
func (e *Engine) call(name, fn string, f *lua.LFunction, args ...lua.LValue) bool {
	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error",
			zap.String("script", name),
			zap.String("hook", fn),
			zap.Error(err),
		)
		return false
	}
	return true
}
