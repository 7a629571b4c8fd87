package httpcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aura-studio/bragg/chain"
	"github.com/tidwall/gjson"
)

// Client sends events to a chain served by the http package.
type Client struct {
	*Options
}

func NewClient(opts ...Option) *Client {
	return &Client{
		Options: NewOptions(opts...),
	}
}

// Call turns ev into an HTTP request and decodes the reply. JSON replies are
// decoded into maps and slices, anything else is returned as a string.
func (c *Client) Call(ctx context.Context, ev chain.Event) (*chain.Response, error) {
	if _, ok := ctx.Deadline(); !ok && c.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DefaultTimeout)
		defer cancel()
	}

	req, err := c.request(ctx, ev)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpcli: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcli: read response body: %w", err)
	}

	rsp := &chain.Response{StatusCode: resp.StatusCode}
	if len(resp.Header) > 0 {
		rsp.Headers = make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			rsp.Headers[k] = resp.Header.Get(k)
		}
	}
	if len(data) > 0 {
		rsp.Body = decodeBody(resp.Header.Get("Content-Type"), data)
	}
	return rsp, nil
}

func (c *Client) request(ctx context.Context, ev chain.Event) (*http.Request, error) {
	keys := chain.DefaultKeyMap()

	method := http.MethodPost
	if v, ok := ev.Lookup(keys, chain.FieldMethod); ok {
		if s, ok := v.(string); ok && s != "" {
			method = strings.ToUpper(s)
		}
	}

	path := "/"
	if v, ok := ev.Lookup(keys, chain.FieldPath); ok {
		if s, ok := v.(string); ok && s != "" {
			path = s
		}
	}

	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("httpcli: invalid url: %w", err)
	}
	if v, ok := ev.Lookup(keys, chain.FieldQuery); ok {
		q := u.Query()
		for k, val := range stringMap(v) {
			q.Set(k, val)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	contentType := ""
	if v, ok := ev.Lookup(keys, chain.FieldBody); ok {
		switch b := v.(type) {
		case string:
			body = strings.NewReader(b)
		case []byte:
			body = bytes.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("httpcli: encode body: %w", err)
			}
			body = bytes.NewReader(data)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("httpcli: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if v, ok := ev.Lookup(keys, chain.FieldHeaders); ok {
		for k, val := range stringMap(v) {
			req.Header.Set(k, val)
		}
	}
	if v, ok := ev.Lookup(keys, chain.FieldRequestID); ok {
		req.Header.Set("X-Request-Id", fmt.Sprint(v))
	}
	return req, nil
}

func decodeBody(contentType string, data []byte) any {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/json" && gjson.ValidBytes(data) {
		return gjson.ParseBytes(data).Value()
	}
	return string(data)
}

func stringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			out[k] = fmt.Sprint(val)
		}
		return out
	case chain.Event:
		return stringMap(map[string]any(m))
	}
	return nil
}
