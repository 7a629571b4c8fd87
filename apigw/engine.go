package apigw

import (
	"context"
	"log"
	"net/http"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	events "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Engine answers API Gateway proxy events with the chain.
type Engine struct {
	*Options
	*chain.Engine
}

func NewEngine(c *chain.Engine, opts ...Option) *Engine {
	return &Engine{
		Options: NewOptions(opts...),
		Engine:  c,
	}
}

// Invoke never returns an error: failures are rendered as HTTP responses so
// API Gateway does not turn them into a generic 502.
func (e *Engine) Invoke(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ev, err := FromProxyRequest(req)
	if err != nil {
		if e.DebugMode {
			log.Printf("[APIGW] Bad request %s %s: %v", req.HTTPMethod, req.Path, err)
		}
		return e.render(chain.Response{StatusCode: http.StatusBadRequest, Body: "Bad Request"}), nil
	}

	rsp := e.Handle(ctx, ev, e.state(ctx))
	if e.DebugMode {
		log.Printf("[APIGW] %s %s -> %d", req.HTTPMethod, req.Path, rsp.StatusCode)
	}
	return e.render(rsp), nil
}

func (e *Engine) render(rsp chain.Response) events.APIGatewayProxyResponse {
	out, err := ToProxyResponse(rsp, e.ErrorBody)
	if err != nil {
		if e.DebugMode {
			log.Printf("[APIGW] Encode response error: %v", err)
		}
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
			Body:       "Internal Server Error",
		}
	}
	return out
}

func (e *Engine) state(ctx context.Context) map[string]any {
	state := make(map[string]any, len(e.State)+2)
	for k, v := range e.State {
		state[k] = v
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		state[invoke.StateRequestID] = lc.AwsRequestID
		state[invoke.StateFunctionARN] = lc.InvokedFunctionArn
	}
	return state
}
