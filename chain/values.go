package chain

import (
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"
)

// Values is a read-only mapping. The zero value is an empty mapping.
type Values struct {
	m map[string]any
}

func newValues(v any) Values {
	m, ok := asMap(v)
	if !ok || len(m) == 0 {
		return Values{}
	}
	return Values{m: deepcopy.Copy(m).(map[string]any)}
}

// Lookup returns the value stored under key. Nested mappings and slices are
// returned as copies, so the built context cannot be changed through them.
func (v Values) Lookup(key string) (any, bool) {
	val, ok := v.m[key]
	return detach(val), ok
}

// Get returns a copy of the value stored under key or nil.
func (v Values) Get(key string) any {
	return detach(v.m[key])
}

// String returns the value under key formatted as a string, or "" when absent.
func (v Values) String(key string) string {
	val, ok := v.m[key]
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// Path resolves a dotted path through nested mappings.
func (v Values) Path(path string) (any, bool) {
	if v.m == nil {
		return nil, false
	}
	val, ok := lookupPath(v.m, path)
	return detach(val), ok
}

func detach(val any) any {
	switch val.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return val
	}
	return deepcopy.Copy(val)
}

func (v Values) Len() int { return len(v.m) }

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a deep copy of the underlying mapping.
func (v Values) Map() map[string]any {
	if v.m == nil {
		return map[string]any{}
	}
	return deepcopy.Copy(v.m).(map[string]any)
}

// State is the per-invocation extension area seeded from the initial state
// bag. Unlike Values it may be modified by handlers.
type State struct {
	Values
}

func newState(initial map[string]any) *State {
	s := &State{Values: newValues(initial)}
	if s.m == nil {
		s.m = map[string]any{}
	}
	return s
}

// Lookup returns the stored value itself; the extension area is mutable.
func (s *State) Lookup(key string) (any, bool) {
	val, ok := s.m[key]
	return val, ok
}

func (s *State) Get(key string) any {
	return s.m[key]
}

func (s *State) Set(key string, value any) {
	s.m[key] = value
}

func (s *State) Delete(key string) {
	delete(s.m, key)
}
