package http

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/aura-studio/bragg/chain"
	"github.com/gin-gonic/gin"
)

var methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions}

// Engine serves a chain over plain HTTP, for local development and
// containers outside Lambda.
type Engine struct {
	*Options
	*gin.Engine
	chain *chain.Engine
}

func NewEngine(c *chain.Engine, opts ...Option) *Engine {
	options := NewOptions(opts...)
	if !options.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	e := &Engine{
		Options: options,
		Engine:  gin.Default(),
		chain:   c,
	}

	if e.CorsMode {
		e.Use(Cors())
	}

	e.InstallHandlers()

	return e
}

func (e *Engine) InstallHandlers() {
	e.HandleAllMethods("/health-check", e.OK)
	e.NoRoute(e.Dispatch)
}

func (e *Engine) HandleAllMethods(relativePath string, handlers ...gin.HandlerFunc) {
	for _, method := range methods {
		e.Handle(method, relativePath, handlers...)
	}
}

func (e *Engine) OK(c *gin.Context) {
	c.String(http.StatusOK, "OK")
	c.Abort()
}

// Dispatch turns the request into an event, runs the chain and writes the
// response.
func (e *Engine) Dispatch(c *gin.Context) {
	ev, err := e.event(c)
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		c.Abort()
		return
	}

	rsp := e.chain.Handle(c.Request.Context(), ev, e.state(c))
	if rsp.Err != nil && e.DebugMode {
		log.Printf("[HTTP] Error: %s %s: %v", c.Request.Method, c.Request.URL.Path, rsp.Err)
	}

	writeResponse(c, rsp)
	c.Abort()
}

func (e *Engine) event(c *gin.Context) (chain.Event, error) {
	ev := chain.Event{
		"httpMethod": c.Request.Method,
		"path":       e.link(c.Request.URL.Path),
		"query":      firstValues(c.Request.URL.Query()),
		"headers":    firstValues(c.Request.Header),
		"identity": map[string]any{
			"sourceIp":  c.ClientIP(),
			"userAgent": c.Request.UserAgent(),
		},
	}

	if c.Request.Body != nil {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			ev["body"] = string(data)
		}
	}
	if id := c.GetHeader("X-Request-Id"); id != "" {
		ev["requestId"] = id
	}
	return ev, nil
}

func (e *Engine) state(c *gin.Context) map[string]any {
	state := make(map[string]any, len(e.State)+1)
	for k, v := range e.State {
		state[k] = v
	}
	state["remoteAddr"] = c.Request.RemoteAddr
	return state
}

func (e *Engine) link(path string) string {
	if dst, ok := e.StaticLinkMap[path]; ok {
		return dst
	}
	// the longest matching prefix wins
	var src string
	for oldPrefix := range e.PrefixLinkMap {
		if strings.HasPrefix(path, oldPrefix) && len(oldPrefix) > len(src) {
			src = oldPrefix
		}
	}
	if src == "" {
		return path
	}
	return e.PrefixLinkMap[src] + strings.TrimPrefix(path, src)
}

func writeResponse(c *gin.Context, rsp chain.Response) {
	for k, v := range rsp.Headers {
		c.Header(k, v)
	}

	switch body := rsp.Body.(type) {
	case nil:
		c.Status(rsp.StatusCode)
	case string:
		c.Data(rsp.StatusCode, "text/plain; charset=utf-8", []byte(body))
	case []byte:
		c.Data(rsp.StatusCode, "application/octet-stream", body)
	default:
		c.JSON(rsp.StatusCode, body)
	}
}

func firstValues(values map[string][]string) map[string]string {
	m := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			m[k] = v[0]
		}
	}
	return m
}
