package invokecli_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/invoke/invokecli"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// loopbackLambda serves Invoke calls from an in-process invoke.Engine.
type loopbackLambda struct {
	engine *invoke.Engine
	inputs []*lambda.InvokeInput
	err    error
}

func (l *loopbackLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	l.inputs = append(l.inputs, params)
	if l.err != nil {
		return nil, l.err
	}
	out, err := l.engine.Invoke(ctx, params.Payload)
	if err != nil {
		return &lambda.InvokeOutput{FunctionError: aws.String("Unhandled"), Payload: []byte(err.Error())}, nil
	}
	if params.InvocationType == types.InvocationTypeEvent {
		return &lambda.InvokeOutput{StatusCode: 202}, nil
	}
	return &lambda.InvokeOutput{StatusCode: 200, Payload: out}, nil
}

func newLoopback(codec string) *loopbackLambda {
	c := chain.NewEngine()
	c.Use(func(ctx *chain.Context, _ chain.Result) chain.Outcome {
		if ctx.Path() != "/hello" {
			return ctx.Throw(http.StatusNotFound, "Resource not found")
		}
		return chain.Return("hello " + ctx.Request().Query.String("name") + " " + ctx.RequestID())
	})
	return &loopbackLambda{engine: invoke.NewEngine(c, invoke.WithCodec(codec))}
}

func TestClientCall(t *testing.T) {
	for _, codec := range []string{invoke.CodecJSON, invoke.CodecProto} {
		lb := newLoopback(codec)
		cli, err := invokecli.NewClient(context.Background(),
			invokecli.WithLambdaClient(lb),
			invokecli.WithFunctionName("bragg-test"),
			invokecli.WithQualifier("live"),
			invokecli.WithCodec(codec),
		)
		if err != nil {
			t.Fatal(err)
		}

		rsp, err := cli.Call(context.Background(), chain.Event{
			"path":      "/hello",
			"query":     map[string]any{"name": "bob"},
			"requestId": "r-1",
		})
		if err != nil {
			t.Fatalf("%s: Call err = %v", codec, err)
		}
		if rsp.StatusCode != http.StatusOK || rsp.Body != "hello bob r-1" {
			t.Errorf("%s: got %d %v", codec, rsp.StatusCode, rsp.Body)
		}

		in := lb.inputs[0]
		if aws.ToString(in.FunctionName) != "bragg-test" || aws.ToString(in.Qualifier) != "live" ||
			in.InvocationType != types.InvocationTypeRequestResponse {
			t.Errorf("%s: input = %+v", codec, in)
		}
	}
}

func TestClientCallAddsRequestID(t *testing.T) {
	lb := newLoopback(invoke.CodecJSON)
	cli, _ := invokecli.NewClient(context.Background(), invokecli.WithLambdaClient(lb))

	rsp, err := cli.Call(context.Background(), chain.Event{"path": "/hello"})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := rsp.Body.(string)
	if len(body) <= len("hello  ") {
		t.Errorf("body = %q, expected a generated request id", body)
	}
}

func TestClientSend(t *testing.T) {
	lb := newLoopback(invoke.CodecJSON)
	cli, _ := invokecli.NewClient(context.Background(), invokecli.WithLambdaClient(lb))

	if err := cli.Send(context.Background(), chain.Event{"path": "/hello"}); err != nil {
		t.Fatal(err)
	}
	if lb.inputs[0].InvocationType != types.InvocationTypeEvent {
		t.Errorf("invocation type = %s", lb.inputs[0].InvocationType)
	}
}

func TestClientErrors(t *testing.T) {
	lb := newLoopback(invoke.CodecJSON)
	lb.err = errors.New("throttled")
	cli, _ := invokecli.NewClient(context.Background(), invokecli.WithLambdaClient(lb))

	if _, err := cli.Call(context.Background(), chain.Event{}); err == nil {
		t.Error("expected transport error")
	}

	if _, err := invokecli.NewClient(context.Background(), invokecli.WithLambdaClient(lb), invokecli.WithCodec("xml")); err == nil {
		t.Error("expected codec error")
	}
}
