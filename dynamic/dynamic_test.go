package dynamic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/dynamic"
	"github.com/stretchr/testify/require"
)

type mockTunnel struct {
	name   string
	route  string
	req    string
	invoke func(route, req string) string
}

func (m *mockTunnel) Init() {}

func (m *mockTunnel) Invoke(route string, req string) string {
	m.route = route
	m.req = req
	if m.invoke != nil {
		return m.invoke(route, req)
	}
	b, _ := json.Marshal(map[string]any{"package": m.name, "route": route, "req": req})
	return string(b)
}

func (m *mockTunnel) Meta() string {
	return `{"name":"` + m.name + `","service":"shadowed"}`
}

func (m *mockTunnel) Close() {}

func newChain(d *dynamic.Dynamic) *chain.Engine {
	c := chain.NewEngine()
	c.Use(d.Handler(), func(ctx *chain.Context, prev chain.Result) chain.Outcome {
		if prev.IsNone() {
			return ctx.Throw(http.StatusNotFound, "Resource not found")
		}
		return chain.Next()
	})
	return c
}

func TestHandlerInvokesTunnel(t *testing.T) {
	tunnel := &mockTunnel{name: "user-service"}
	c := newChain(dynamic.NewDynamic(dynamic.WithStaticPackage("user-service", "v1", tunnel)))

	rsp := c.Handle(context.Background(), chain.Event{
		"httpMethod": "POST",
		"path":       "/api/user-service/v1/users/list",
		"body":       map[string]any{"page": 2},
	}, nil)

	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Equal(t, "/users/list", tunnel.route)
	require.JSONEq(t, `{"page":2}`, tunnel.req)
	body, ok := rsp.Body.(map[string]any)
	require.True(t, ok, "json tunnel responses are decoded")
	require.Equal(t, "user-service", body["package"])
}

func TestHandlerRequestSources(t *testing.T) {
	tunnel := &mockTunnel{name: "req-service", invoke: func(_, req string) string { return "plain:" + req }}
	c := newChain(dynamic.NewDynamic(dynamic.WithStaticPackage("req-service", "v1", tunnel)))

	rsp := c.Handle(context.Background(), chain.Event{"path": "/api/req-service/v1", "query": map[string]string{"q": "x"}}, nil)
	require.Equal(t, `plain:{"q":"x"}`, rsp.Body)
	require.Equal(t, "/", tunnel.route)

	rsp = c.Handle(context.Background(), chain.Event{"path": "/api/req-service/v1/raw", "body": "not json"}, nil)
	require.Equal(t, "plain:not json", rsp.Body)
}

func TestHandlerSpecialResponses(t *testing.T) {
	tunnel := &mockTunnel{name: "special", invoke: func(route, _ string) string {
		switch route {
		case "/redirect":
			return "https://example.com/next"
		case "/error":
			return "error://tunnel failed"
		}
		return "[1,2]"
	}}
	c := newChain(dynamic.NewDynamic(dynamic.WithStaticPackage("special", "v1", tunnel)))

	rsp := c.Handle(context.Background(), chain.Event{"path": "/api/special/v1/redirect"}, nil)
	require.Equal(t, http.StatusTemporaryRedirect, rsp.StatusCode)
	require.Equal(t, "https://example.com/next", rsp.Headers["Location"])
	require.Nil(t, rsp.Body)

	rsp = c.Handle(context.Background(), chain.Event{"path": "/api/special/v1/error"}, nil)
	require.Equal(t, http.StatusInternalServerError, rsp.StatusCode)
	require.ErrorContains(t, rsp.Err, "tunnel failed")

	rsp = c.Handle(context.Background(), chain.Event{"path": "/api/special/v1/list"}, nil)
	require.Equal(t, []any{1.0, 2.0}, rsp.Body)
}

func TestHandlerPaths(t *testing.T) {
	c := newChain(dynamic.NewDynamic(dynamic.WithAPIPrefix("/fn")))

	rsp := c.Handle(context.Background(), chain.Event{"path": "/other"}, nil)
	require.Equal(t, http.StatusNotFound, rsp.StatusCode)
	require.Equal(t, "Resource not found", rsp.Body)

	rsp = c.Handle(context.Background(), chain.Event{"path": "/fn/only"}, nil)
	require.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	rsp = c.Handle(context.Background(), chain.Event{"path": "/fn/missing-pkg/v9/route"}, nil)
	require.Equal(t, http.StatusNotFound, rsp.StatusCode)
	body, _ := rsp.Body.(string)
	require.True(t, strings.Contains(body, "package") && strings.Contains(body, "not found"), body)
}

func TestHandlerMeta(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "shop-bragg-go-api-blue")
	tunnel := &mockTunnel{name: "meta-service"}
	c := newChain(dynamic.NewDynamic(
		dynamic.WithStaticPackage("meta-service", "v1", tunnel),
		dynamic.WithWarehouse("/tmp/warehouse", ""),
	))

	rsp := c.Handle(context.Background(), chain.Event{"path": "/meta/meta-service/v1"}, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	body, ok := rsp.Body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "meta-service", body["name"])

	service := body["service"].(map[string]any)
	require.Equal(t, "shop", service["business"])
	require.Equal(t, "blue", service["instance"])
	require.Equal(t, "/tmp/warehouse", body["warehouse"].(map[string]any)["local"])
}

func TestMetaGeneratorIgnoresInvalidTunnelMeta(t *testing.T) {
	g := dynamic.NewMetaGenerator("", "")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(g.Generate("not json")), &m))
	require.Contains(t, m, "service")
	require.Contains(t, m, "build")
}

func TestWithConfig(t *testing.T) {
	o := dynamic.NewOptions(dynamic.WithConfig([]byte(`
environment:
  toolchain:
    os: linux
    arch: amd64
  warehouse:
    local: /opt/warehouse
    remote: s3://bucket
package:
  namespace: shop
  defaultVersion: v1
  preload:
    - package: cart
      version: v2
route:
  api: /fn
debug: true
`)))
	require.Equal(t, "linux", o.Os)
	require.Equal(t, "amd64", o.Arch)
	require.Equal(t, "/opt/warehouse", o.LocalWarehouse)
	require.Equal(t, "s3://bucket", o.RemoteWarehouse)
	require.Equal(t, "shop", o.PackageNamespace)
	require.Equal(t, "v1", o.PackageDefaultVersion)
	require.Len(t, o.PreloadPackages, 1)
	require.Equal(t, "cart", o.PreloadPackages[0].Package)
	require.Equal(t, "/fn", o.APIPrefix)
	require.Equal(t, "/meta", o.MetaPrefix)
	require.True(t, o.DebugMode)

	require.Panics(t, func() { dynamic.NewOptions(dynamic.WithConfig([]byte("environment: ["))) })
}
