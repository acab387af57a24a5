package discovery

import (
	"fmt"
	"reflect"
	"slices"

	lua "github.com/yuin/gopher-lua"

	"plugind/internal/plugin"
)

// toLua converts a Go value into a Lua value. Maps with string keys become
// tables, slices become arrays; anything else unknown is rendered with
// fmt.Sprint.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case plugin.Payload:
		return mapToLua(L, map[string]any(val))
	case map[string]any:
		return mapToLua(L, val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case fmt.Stringer:
		return lua.LString(val.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return lua.LNil
		}
		return toLua(L, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSetString(iter.Key().String(), toLua(L, iter.Value().Interface()))
		}
		return t
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	}
	return lua.LString(fmt.Sprint(v))
}

func mapToLua(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.NewTable()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		t.RawSetString(k, toLua(L, m[k]))
	}
	return t
}

// fromLua converts a Lua value into plain Go values: tables with a contiguous
// 1..n integer key range become []any, other tables map[string]any. Integral
// numbers become int64. Cycles are cut with nil.
func fromLua(v lua.LValue) any {
	return fromLuaVisited(v, make(map[*lua.LTable]bool))
}

func fromLuaVisited(v lua.LValue, visited map[*lua.LTable]bool) any {
	switch val := v.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if visited[val] {
			return nil
		}
		visited[val] = true
		defer delete(visited, val)
		return tableToGo(val, visited)
	case *lua.LUserData:
		return val.Value
	}
	return nil
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })
	if n > 0 && count == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = fromLuaVisited(t.RawGetInt(i), visited)
		}
		return arr
	}
	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = fromLuaVisited(v, visited)
	})
	return m
}

// filtersFromLua reads a filters table: event type -> array of field names
// (a single string is accepted as a one-element array).
func filtersFromLua(v lua.LValue) (plugin.Filters, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		out := make(plugin.Filters)
		var ferr error
		val.ForEach(func(k, fields lua.LValue) {
			if ferr != nil {
				return
			}
			event, ok := k.(lua.LString)
			if !ok {
				ferr = fmt.Errorf("filters: event type must be a string, got %s", k.Type())
				return
			}
			names, err := fieldNamesFromLua(fields)
			if err != nil {
				ferr = fmt.Errorf("filters[%s]: %w", string(event), err)
				return
			}
			out[string(event)] = names
		})
		if ferr != nil {
			return nil, ferr
		}
		return out, nil
	}
	return nil, fmt.Errorf("filters must be a table, got %s", v.Type())
}

func fieldNamesFromLua(v lua.LValue) ([]string, error) {
	switch val := v.(type) {
	case lua.LString:
		return []string{string(val)}, nil
	case *lua.LTable:
		var names []string
		var ferr error
		val.ForEach(func(_, f lua.LValue) {
			s, ok := f.(lua.LString)
			if !ok {
				ferr = fmt.Errorf("field name must be a string, got %s", f.Type())
				return
			}
			names = append(names, string(s))
		})
		return names, ferr
	}
	return nil, fmt.Errorf("expected string or array of strings, got %s", v.Type())
}
