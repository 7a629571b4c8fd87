package server_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/dynamic"
	"github.com/aura-studio/bragg/server"
	"github.com/stretchr/testify/require"
)

type echoTunnel struct{}

func (echoTunnel) Init()                                  {}
func (echoTunnel) Invoke(route string, req string) string { return route + " " + req }
func (echoTunnel) Meta() string                           { return `{}` }
func (echoTunnel) Close()                                 {}

const serverYAML = `
lambda: sqs
chain:
  mode:
    exposeErrors: true
  response:
    headers:
      X-Server: bragg
sqs:
  partialMode: true
http:
  address: ":9090"
dynamic:
  route:
    api: /fn
`

func TestWithServeConfig(t *testing.T) {
	o := server.NewOptions(server.WithServeConfig([]byte(serverYAML)))
	require.Equal(t, server.LambdaSQS, o.Lambda)
	require.Len(t, o.Chain, 1)
	require.Len(t, o.Sqs, 1)
	require.Len(t, o.Http, 1)
	require.Len(t, o.Dynamic, 1)
	require.Empty(t, o.Invoke)
	require.Empty(t, o.APIGW)

	require.Panics(t, func() { server.WithServeConfig([]byte("lambda: [")) })
	require.Panics(t, func() { server.WithServeConfig([]byte("bogus: true")) })
}

func TestNewEngine(t *testing.T) {
	o := server.NewOptions(
		server.WithServeConfig([]byte(serverYAML)),
		server.WithDynamic(dynamic.WithStaticPackage("server-echo", "v1", echoTunnel{})),
		server.WithHandlers(func(c *chain.Context, _ chain.Result) chain.Outcome {
			if c.Path() == "/boom" {
				return chain.Fail(http.ErrAbortHandler)
			}
			return chain.Next()
		}),
	)
	e := server.NewEngine(o)

	rsp := e.Handle(context.Background(), chain.Event{"path": "/fn/server-echo/v1/hi", "body": "raw"}, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Equal(t, "/hi raw", rsp.Body)
	require.Equal(t, "bragg", rsp.Headers["X-Server"])

	rsp = e.Handle(context.Background(), chain.Event{"path": "/boom"}, nil)
	require.Equal(t, http.StatusInternalServerError, rsp.StatusCode)
	require.Equal(t, http.ErrAbortHandler.Error(), rsp.Body)
}

func TestServeUnknownLambda(t *testing.T) {
	require.Error(t, server.Serve(server.WithLambda("grpc")))
}

func TestDefaultOptions(t *testing.T) {
	o := server.NewOptions()
	require.Equal(t, server.LambdaHTTP, o.Lambda)
	require.Nil(t, o.Dynamic)
	require.Len(t, server.NewEngine(o).Handlers(), 0)
}
