package invoke

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/aura-studio/bragg/chain"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Initial state keys set from the Lambda invocation.
const (
	StateRequestID   = "awsRequestId"
	StateFunctionARN = "invokedFunctionArn"
	StateFunction    = "functionName"
)

// Engine adapts raw Lambda invocations to a chain. It implements
// lambda.Handler.
type Engine struct {
	*Options
	*chain.Engine
	codec Codec
}

// NewEngine wraps c. The chain's handlers may still be registered after the
// engine is created.
func NewEngine(c *chain.Engine, opts ...Option) *Engine {
	e := &Engine{
		Options: NewOptions(opts...),
		Engine:  c,
	}
	codec, err := CodecByName(e.Codec)
	if err != nil {
		panic(err)
	}
	e.codec = codec
	return e
}

// Invoke decodes payload into an event, runs the chain and encodes the
// response. Handler failures are part of the encoded response; an error is
// only returned when the response itself cannot be encoded.
func (e *Engine) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	ev, err := e.codec.DecodeEvent(payload)
	if err != nil {
		if e.DebugMode {
			log.Printf("[Invoke] Decode event error: %v", err)
		}
		return e.encode(chain.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       http.StatusText(http.StatusInternalServerError),
			Err:        fmt.Errorf("invoke: decode event: %w", err),
		})
	}

	rsp := e.Handle(ctx, ev, e.state(ctx))

	if e.DebugMode && rsp.Err != nil {
		log.Printf("[Invoke] Error: %v", rsp.Err)
	}
	return e.encode(rsp)
}

func (e *Engine) encode(rsp chain.Response) ([]byte, error) {
	b, err := e.codec.EncodeResponse(rsp)
	if err != nil {
		return nil, fmt.Errorf("invoke: encode response: %w", err)
	}
	return b, nil
}

func (e *Engine) state(ctx context.Context) map[string]any {
	state := make(map[string]any, len(e.State)+3)
	for k, v := range e.State {
		state[k] = v
	}
	if lambdacontext.FunctionName != "" {
		state[StateFunction] = lambdacontext.FunctionName
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		state[StateRequestID] = lc.AwsRequestID
		state[StateFunctionARN] = lc.InvokedFunctionArn
	}
	return state
}
