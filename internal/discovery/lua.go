package discovery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"plugind/internal/plugin"
)

// Globals a Lua plugin script defines.
const (
	luaName        = "name"
	luaDescription = "description"
	luaFilters     = "filters"
	luaPerform     = "perform_operation"
	// luaSkip is the sentinel a script returns to decline an event.
	luaSkip = "SKIP"
)

// DefaultLuaPattern matches Lua plugin scripts.
const DefaultLuaPattern = "*.lua"

// ErrPluginClosed is returned when a closed plugin is invoked.
var ErrPluginClosed = errors.New("plugin closed")

// LuaLoader loads plugin scripts written in Lua. A script declares:
//
//	name = "mk_project_directory"          -- optional, defaults to the file stem
//	description = "Create the project directory"
//	filters = { New_Project = { "*" } }
//	function perform_operation(event, ...)
//	  return event.meta.reference
//	end
//
// Errors raised with error() become invocation failures; returning SKIP
// declines the event.
type LuaLoader struct {
	pattern string
}

// NewLuaLoader returns a loader for files matching pattern (DefaultLuaPattern
// when empty).
func NewLuaLoader(pattern string) *LuaLoader {
	if pattern == "" {
		pattern = DefaultLuaPattern
	}
	return &LuaLoader{pattern: pattern}
}

func (l *LuaLoader) Pattern() string { return l.pattern }

func (l *LuaLoader) Load(ctx context.Context, path string, host plugin.Host) (plugin.Plugin, error) {
	L := lua.NewState()
	skip := L.NewTable()
	L.SetGlobal(luaSkip, skip)
	L.SetContext(ctx)
	err := L.DoFile(path)
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("load lua: %w", err)
	}

	fn, ok := L.GetGlobal(luaPerform).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("%s is not defined as a function", luaPerform)
	}
	filters, err := filtersFromLua(L.GetGlobal(luaFilters))
	if err != nil {
		L.Close()
		return nil, err
	}
	name := stem(path)
	if v, ok := L.GetGlobal(luaName).(lua.LString); ok && v != "" {
		name = string(v)
	}
	desc := ""
	if v, ok := L.GetGlobal(luaDescription).(lua.LString); ok {
		desc = string(v)
	}
	return &LuaPlugin{
		Base: plugin.NewBase(host, name, desc, filters),
		path: path,
		L:    L,
		fn:   fn,
		skip: skip,
	}, nil
}

// LuaPlugin is a plugin backed by a Lua script. Calls are serialized because
// an LState is not goroutine-safe.
type LuaPlugin struct {
	plugin.Base
	path string

	mu   sync.Mutex
	L    *lua.LState
	fn   *lua.LFunction
	skip *lua.LTable
}

// Path returns the script the plugin was loaded from.
func (p *LuaPlugin) Path() string { return p.path }

func (p *LuaPlugin) Perform(ctx context.Context, payload plugin.Payload, extra ...any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.L == nil {
		return nil, ErrPluginClosed
	}
	args := make([]lua.LValue, 0, 1+len(extra))
	args = append(args, toLua(p.L, payload))
	for _, x := range extra {
		args = append(args, toLua(p.L, x))
	}

	p.L.SetContext(ctx)
	defer p.L.RemoveContext()
	if err := p.L.CallByParam(lua.P{Fn: p.fn, NRet: 1, Protect: true}, args...); err != nil {
		// The interpreter reports cancellation as a plain Lua error.
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: %v", cerr, err)
		}
		return nil, err
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)
	if t, ok := ret.(*lua.LTable); ok && t == p.skip {
		return nil, plugin.ErrSkip
	}
	return fromLua(ret), nil
}

// Close releases the Lua state.
func (p *LuaPlugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.L != nil {
		p.L.Close()
		p.L = nil
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
