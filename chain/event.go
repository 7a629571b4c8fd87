package chain

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Event is the raw platform event handed to the engine. It is owned by the
// caller and never modified.
type Event map[string]any

// Field names understood by the context builder.
const (
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldBody      = "body"
	FieldQuery     = "query"
	FieldParams    = "params"
	FieldIdentity  = "identity"
	FieldHeaders   = "headers"
	FieldRequestID = "requestId"
)

// KeyMap lists, per field, the event keys tried in order. Keys are matched
// case-insensitively and may be dotted paths into nested mappings.
type KeyMap map[string][]string

var defaultKeyMap = KeyMap{
	FieldMethod:    {"http-method", "httpMethod", "http_method", "method", "requestContext.http.method"},
	FieldPath:      {"resource-path", "resourcePath", "path", "rawPath", "resource"},
	FieldBody:      {"body"},
	FieldQuery:     {"query", "queryStringParameters", "querystring"},
	FieldParams:    {"params", "pathParameters", "path-params", "pathParams"},
	FieldIdentity:  {"identity", "claims", "requestContext.identity", "requestContext.authorizer.claims"},
	FieldHeaders:   {"headers", "header"},
	FieldRequestID: {"requestId", "request-id", "requestContext.requestId"},
}

// DefaultKeyMap returns a copy of the built-in alias table.
func DefaultKeyMap() KeyMap {
	return defaultKeyMap.With(nil)
}

// With returns a new KeyMap where the aliases in extra are tried before the
// ones already present.
func (m KeyMap) With(extra KeyMap) KeyMap {
	out := make(KeyMap, len(m))
	for field, keys := range m {
		out[field] = append([]string(nil), keys...)
	}
	for field, keys := range extra {
		merged := make([]string, 0, len(keys)+len(out[field]))
		merged = append(merged, keys...)
		merged = append(merged, out[field]...)
		out[field] = merged
	}
	return out
}

// EventFromJSON decodes a JSON object into an Event.
func EventFromJSON(b []byte) (Event, error) {
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("chain: invalid event json")
	}
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return nil, fmt.Errorf("chain: event json is %s, want object", res.Type)
	}
	m, _ := res.Value().(map[string]any)
	return Event(m), nil
}

// Lookup resolves the first alias of field present in the event.
func (ev Event) Lookup(keys KeyMap, field string) (any, bool) {
	for _, alias := range keys[field] {
		if v, ok := lookupPath(ev, alias); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupPath(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		mm, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = lookupFold(mm, seg); !ok {
			return nil, false
		}
	}
	return cur, true
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	// smallest matching key wins so that the result does not depend on map order
	var (
		found string
		ok    bool
	)
	for k := range m {
		if strings.EqualFold(k, key) && (!ok || k < found) {
			found, ok = k, true
		}
	}
	if !ok {
		return nil, false
	}
	return m[found], true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Event:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}
