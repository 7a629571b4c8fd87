package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ErrFrozen is matched by every *FieldError.
var ErrFrozen = errors.New("chain: context is frozen")

// FieldError reports an attempt to assign a context field that is read-only
// or does not exist.
type FieldError struct {
	Field    string
	ReadOnly bool
}

func (e *FieldError) Error() string {
	if e.ReadOnly {
		return fmt.Sprintf("chain: cannot assign to read only field %q", e.Field)
	}
	return fmt.Sprintf("chain: cannot add field %q to context", e.Field)
}

func (e *FieldError) Is(target error) bool { return target == ErrFrozen }

// Request holds the normalized inbound request.
type Request struct {
	Body     Values
	Query    Values
	Params   Values
	Identity Values
	Headers  Values

	// RawBody is set when the event body is a string that does not hold a
	// JSON object.
	RawBody string
}

// Context is built once per invocation and handed to every handler. Only the
// response area (body, status, headers, abort flag) and the Extra state can
// change after construction.
type Context struct {
	ctx       context.Context
	event     Values
	requestID string
	method    string
	path      string
	request   Request
	extra     *State

	body       any
	hasBody    bool
	bodyWrites int
	status     int
	headers    map[string]string
	aborted    bool
}

// NewContext builds a context from ev using the default key aliases.
func NewContext(ev Event, initialState map[string]any) *Context {
	return buildContext(context.Background(), ev, initialState, defaultKeyMap)
}

func buildContext(ctx context.Context, ev Event, initialState map[string]any, keys KeyMap) *Context {
	c := &Context{
		ctx:     ctx,
		event:   newValues(map[string]any(ev)),
		extra:   newState(initialState),
		headers: map[string]string{},
	}

	if v, ok := ev.Lookup(keys, FieldMethod); ok {
		c.method = strings.ToUpper(fmt.Sprint(v))
	}
	if v, ok := ev.Lookup(keys, FieldPath); ok {
		if s, ok := v.(string); ok {
			c.path = s
		}
	}
	if v, ok := ev.Lookup(keys, FieldRequestID); ok {
		c.requestID = fmt.Sprint(v)
	} else {
		c.requestID = uuid.NewString()
	}

	c.request.Body, c.request.RawBody = parseBody(ev, keys)
	c.request.Query = lookupValues(ev, keys, FieldQuery)
	c.request.Params = lookupValues(ev, keys, FieldParams)
	c.request.Identity = lookupValues(ev, keys, FieldIdentity)
	c.request.Headers = lookupValues(ev, keys, FieldHeaders)

	return c
}

func lookupValues(ev Event, keys KeyMap, field string) Values {
	v, ok := ev.Lookup(keys, field)
	if !ok {
		return Values{}
	}
	return newValues(v)
}

func parseBody(ev Event, keys KeyMap) (Values, string) {
	v, ok := ev.Lookup(keys, FieldBody)
	if !ok {
		return Values{}, ""
	}
	switch b := v.(type) {
	case string:
		if res := gjson.Parse(b); gjson.Valid(b) && res.IsObject() {
			return newValues(res.Value()), ""
		}
		return Values{}, b
	case []byte:
		if res := gjson.ParseBytes(b); gjson.ValidBytes(b) && res.IsObject() {
			return newValues(res.Value()), ""
		}
		return Values{}, string(b)
	}
	return newValues(v), ""
}

// Context returns the context.Context of the invocation.
func (c *Context) Context() context.Context { return c.ctx }

// Event returns the raw event the context was built from.
func (c *Context) Event() Values { return c.event }

func (c *Context) RequestID() string { return c.requestID }

func (c *Context) Method() string { return c.method }

func (c *Context) Path() string { return c.path }

func (c *Context) Request() Request { return c.request }

// Extra returns the extension area seeded from the initial state bag.
func (c *Context) Extra() *State { return c.extra }

// SetBody sets the response body. The value may be a *Future, which is
// resolved before the response is produced.
func (c *Context) SetBody(v any) {
	c.body = v
	c.hasBody = true
	c.bodyWrites++
}

// Body returns the response body and whether one was set.
func (c *Context) Body() (any, bool) { return c.body, c.hasBody }

func (c *Context) SetStatus(code int) { c.status = code }

// Status returns the explicitly set status code, or 0.
func (c *Context) Status() int { return c.status }

func (c *Context) SetHeader(key, value string) { c.headers[key] = value }

func (c *Context) Header(key string) string { return c.headers[key] }

// Abort stops the chain once the current handler returns.
func (c *Context) Abort() { c.aborted = true }

func (c *Context) IsAborted() bool { return c.aborted }

// Throw is shorthand for the Throw outcome.
func (c *Context) Throw(status int, message string) Outcome {
	return Throw(status, message)
}

// Set assigns a context field by name. Only the response fields are
// writable; every other name yields a *FieldError.
func (c *Context) Set(field string, value any) error {
	switch field {
	case "body":
		c.SetBody(value)
		return nil
	case "status", "statusCode":
		code, ok := value.(int)
		if !ok {
			return fmt.Errorf("chain: status must be int, got %T", value)
		}
		c.SetStatus(code)
		return nil
	case "method", "path", "request", "event", "extra", "requestId", "headers":
		return &FieldError{Field: field, ReadOnly: true}
	}
	return &FieldError{Field: field}
}
