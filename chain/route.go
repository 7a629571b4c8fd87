package chain

import "strings"

// Route wraps h so it only runs when the request matches method and pattern.
// An empty method or "*" matches any method. Patterns are flat: either an
// exact path or a prefix ending in a wildcard segment such as /api/*path.
// Non-matching requests pass through with the result unchanged.
func Route(method, pattern string, h HandlerFunc) HandlerFunc {
	method = strings.ToUpper(method)
	return func(c *Context, prev Result) Outcome {
		if method != "" && method != "*" && method != c.Method() {
			return Next()
		}
		if _, ok := MatchPattern(pattern, c.Path()); !ok {
			return Next()
		}
		return h(c, prev)
	}
}

// MatchPattern matches path against a flat pattern. For wildcard patterns the
// remainder is returned with a leading slash, e.g. /api/*path matched against
// /api/pkg/v1 yields /pkg/v1.
func MatchPattern(pattern, path string) (param string, ok bool) {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return "", pattern == path
	}

	prefix := pattern[:idx]
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if path+"/" == prefix {
		return "/", true
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return "/" + strings.TrimPrefix(path, prefix), true
}
