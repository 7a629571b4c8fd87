package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
)

// HandlerFunc is one link of the chain. prev holds the value produced by the
// closest preceding handler that produced one.
type HandlerFunc func(c *Context, prev Result) Outcome

// ErrStopped is reported by a stopped engine.
var ErrStopped = errors.New("chain: engine is stopped")

// Response is the normalized outcome of one invocation.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`

	// Err holds the cause of an unexpected failure. It is never part of the
	// body unless ExposeErrors is set.
	Err error `json:"-"`
}

// Engine owns the ordered handler list and runs invocations against it.
// Invocations may run concurrently; each works on a snapshot of the list taken
// when it starts.
type Engine struct {
	*Options
	keys     KeyMap
	mu       sync.Mutex
	handlers atomic.Pointer[[]HandlerFunc]
	running  atomic.Int32
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		Options: NewOptions(opts...),
	}
	e.keys = defaultKeyMap.With(e.Keys)
	e.handlers.Store(&[]HandlerFunc{})
	e.running.Store(1)
	return e
}

func (e *Engine) Start() {
	e.running.Store(1)
}

// Stop makes the engine answer every new invocation with 503.
func (e *Engine) Stop() {
	e.running.Store(0)
}

func (e *Engine) IsRunning() bool {
	return e.running.Load() == 1
}

// Use appends handlers to the chain. Invocations already in flight keep the
// list they started with.
func (e *Engine) Use(handlers ...HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := *e.handlers.Load()
	next := make([]HandlerFunc, 0, len(cur)+len(handlers))
	next = append(next, cur...)
	for _, h := range handlers {
		if h != nil {
			next = append(next, h)
		}
	}
	e.handlers.Store(&next)
}

// Handlers returns a copy of the registered handlers in dispatch order.
func (e *Engine) Handlers() []HandlerFunc {
	return append([]HandlerFunc(nil), *e.handlers.Load()...)
}

// Handle runs one invocation of the chain for ev.
func (e *Engine) Handle(ctx context.Context, ev Event, initialState map[string]any) Response {
	if ctx == nil {
		ctx = context.Background()
	}

	if !e.IsRunning() {
		return Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       "engine is stopped",
			Err:        ErrStopped,
		}
	}

	c, err := e.build(ctx, ev, initialState)
	if err != nil {
		return e.failure(nil, err, err)
	}

	if e.DebugMode {
		e.logf("[Chain] Request: %s %s %s", c.requestID, c.method, c.path)
	}

	rsp := e.dispatch(c, *e.handlers.Load())

	if e.DebugMode {
		e.logf("[Chain] Response: %s %d %v", c.requestID, rsp.StatusCode, rsp.Body)
	}
	return rsp
}

func (e *Engine) build(ctx context.Context, ev Event, initialState map[string]any) (c *Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chain: build context: panic: %v", r)
		}
	}()
	return buildContext(ctx, ev, initialState, e.keys), nil
}

func (e *Engine) dispatch(c *Context, handlers []HandlerFunc) Response {
	result := None()

	for i, h := range handlers {
		writes := c.bodyWrites

		out := call(c, h, result)
		if out.kind == kindAwait {
			out = settle(c, out.future)
		}

		switch out.kind {
		case kindFail:
			return e.failure(c, fmt.Errorf("chain: handler %d: %w", i, out.err), out.err)
		case kindAbort:
			return e.abort(c, out.err.(*AbortError))
		case kindStop:
			return e.respond(c, result)
		case kindReturn:
			result = Some(out.value)
		case kindNext:
			if c.bodyWrites != writes {
				if f, ok := c.body.(*Future); ok {
					settled := settle(c, f)
					switch settled.kind {
					case kindFail:
						return e.failure(c, fmt.Errorf("chain: handler %d: body: %w", i, settled.err), settled.err)
					case kindAbort:
						return e.abort(c, settled.err.(*AbortError))
					}
					c.SetBody(settled.value)
				}
				result = Some(c.body)
			}
		}

		if c.aborted {
			return e.respond(c, result)
		}
	}

	return e.respond(c, result)
}

func call(c *Context, h HandlerFunc, prev Result) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(fmt.Errorf("panic: %v", r))
		}
	}()
	return h(c, prev)
}

func settle(c *Context, f *Future) Outcome {
	return From(f.Wait(c.ctx))
}

func (e *Engine) respond(c *Context, result Result) Response {
	var body any
	if v, ok := c.Body(); ok {
		body = v
	} else if v, ok := result.Value(); ok {
		body = v
	}

	if f, ok := body.(*Future); ok {
		out := settle(c, f)
		switch out.kind {
		case kindAbort:
			return e.abort(c, out.err.(*AbortError))
		case kindFail:
			return e.failure(c, fmt.Errorf("chain: body: %w", out.err), out.err)
		}
		body = out.value
	}

	status := c.status
	if status == 0 {
		status = e.DefaultStatus
	}

	return Response{
		StatusCode: status,
		Headers:    e.headers(c),
		Body:       body,
	}
}

func (e *Engine) abort(c *Context, ae *AbortError) Response {
	status := ae.StatusCode
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	if e.DebugMode {
		e.logf("[Chain] Abort: %s %v", c.requestID, ae)
	}
	return Response{
		StatusCode: status,
		Headers:    e.headers(c),
		Body:       ae.Message,
	}
}

func (e *Engine) failure(c *Context, err error, cause error) Response {
	if e.DebugMode {
		e.logf("[Chain] Error: %v", err)
	}
	if e.ErrorHandler != nil && c != nil {
		e.ErrorHandler(c, err)
	}

	body := http.StatusText(http.StatusInternalServerError)
	if e.ExposeErrors {
		body = cause.Error()
	}
	return Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    e.headers(c),
		Body:       body,
		Err:        err,
	}
}

func (e *Engine) headers(c *Context) map[string]string {
	n := len(e.Headers)
	if c != nil {
		n += len(c.headers)
	}
	if n == 0 {
		return nil
	}
	out := make(map[string]string, n)
	for k, v := range e.Headers {
		out[k] = v
	}
	if c != nil {
		for k, v := range c.headers {
			out[k] = v
		}
	}
	return out
}

func (e *Engine) logf(format string, v ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}
