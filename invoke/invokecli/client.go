package invokecli

import (
	"context"
	"fmt"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"
)

// Client invokes a function served by invoke.Serve.
type Client struct {
	*Options
	codec invoke.Codec
}

// NewClient creates a client. It fails when the codec is unknown or the
// default AWS configuration cannot be loaded.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{
		Options: NewOptions(opts...),
	}

	codec, err := invoke.CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	c.codec = codec

	if c.LambdaClient == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("invokecli: load aws config: %w", err)
		}
		c.LambdaClient = lambda.NewFromConfig(cfg)
	}
	return c, nil
}

// Call invokes the function synchronously and decodes its response. A
// requestId is added to the event when it carries none.
func (c *Client) Call(ctx context.Context, ev chain.Event) (*chain.Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.invoke(ctx, types.InvocationTypeRequestResponse, ev)
	if err != nil {
		return nil, err
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("invokecli: function error %s: %s", aws.ToString(out.FunctionError), out.Payload)
	}

	rsp, err := c.codec.DecodeResponse(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("invokecli: decode response: %w", err)
	}
	return &rsp, nil
}

// Send invokes the function asynchronously. It returns once Lambda has
// queued the event.
func (c *Client) Send(ctx context.Context, ev chain.Event) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.invoke(ctx, types.InvocationTypeEvent, ev)
	return err
}

func (c *Client) invoke(ctx context.Context, typ types.InvocationType, ev chain.Event) (*lambda.InvokeOutput, error) {
	payload, err := c.codec.EncodeEvent(withRequestID(ev))
	if err != nil {
		return nil, fmt.Errorf("invokecli: encode event: %w", err)
	}

	input := &lambda.InvokeInput{
		FunctionName:   aws.String(c.FunctionName),
		InvocationType: typ,
		Payload:        payload,
	}
	if c.Qualifier != "" {
		input.Qualifier = aws.String(c.Qualifier)
	}

	out, err := c.LambdaClient.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("invokecli: lambda invoke failed: %w", err)
	}
	return out, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.DefaultTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.DefaultTimeout)
}

func withRequestID(ev chain.Event) chain.Event {
	out := make(chain.Event, len(ev)+1)
	for k, v := range ev {
		out[k] = v
	}
	if _, ok := ev.Lookup(chain.DefaultKeyMap(), chain.FieldRequestID); !ok {
		out["requestId"] = uuid.NewString()
	}
	return out
}
