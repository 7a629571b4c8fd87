package sqscli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/sqs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

var ErrNoResponseQueue = errors.New("sqscli: no response queue configured")

// Client enqueues events for an engine served by sqs.Serve. When a response
// queue is configured, a listener correlates replies to pending calls.
type Client struct {
	*Options
	codec           invoke.Codec
	pendingRequests sync.Map // correlationId -> chan chain.Response
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{
		Options:  NewOptions(opts...),
		stopChan: make(chan struct{}),
	}

	codec, err := invoke.CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	c.codec = codec

	if c.SQSClient == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("sqscli: load aws config: %w", err)
		}
		c.SQSClient = awssqs.NewFromConfig(cfg)
	}

	if c.ResponseQueueURL != "" {
		c.wg.Add(1)
		go c.listener()
	}
	return c, nil
}

// Close stops the response listener and waits for it to exit.
func (c *Client) Close() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

// Send enqueues ev without waiting for a reply. A requestId is added when the
// event carries none.
func (c *Client) Send(ctx context.Context, ev chain.Event) error {
	return c.send(ctx, ev, nil)
}

// Call enqueues ev and waits for the correlated reply.
func (c *Client) Call(ctx context.Context, ev chain.Event) (*chain.Response, error) {
	if c.ResponseQueueURL == "" {
		return nil, ErrNoResponseQueue
	}

	correlationID := uuid.NewString()
	respChan := make(chan chain.Response, 1)
	c.pendingRequests.Store(correlationID, respChan)
	defer c.pendingRequests.Delete(correlationID)

	attrs := map[string]types.MessageAttributeValue{
		sqs.AttrReplyTo:       stringValue(c.ResponseQueueURL),
		sqs.AttrCorrelationID: stringValue(correlationID),
	}
	if err := c.send(ctx, ev, attrs); err != nil {
		return nil, err
	}

	timeout := c.DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rsp := <-respChan:
		return &rsp, nil
	case <-timer.C:
		return nil, fmt.Errorf("sqscli: request %s timed out", correlationID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, ev chain.Event, attrs map[string]types.MessageAttributeValue) error {
	payload, err := c.codec.EncodeEvent(withRequestID(ev))
	if err != nil {
		return fmt.Errorf("sqscli: encode event: %w", err)
	}
	_, err = c.SQSClient.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:          aws.String(c.RequestQueueURL),
		MessageBody:       aws.String(sqs.EncodeBody(c.codec, payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sqscli: send message: %w", err)
	}
	return nil
}

func (c *Client) listener() {
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stopChan
		cancel()
	}()

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		output, err := c.SQSClient.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
			QueueUrl:              aws.String(c.ResponseQueueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       int32(c.WaitTime / time.Second),
			MessageAttributeNames: []string{sqs.AttrCorrelationID, sqs.AttrStatusCode},
		})
		if err != nil {
			select {
			case <-c.stopChan:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range output.Messages {
			c.handleIncomingMessage(msg)
			_, _ = c.SQSClient.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
				QueueUrl:      aws.String(c.ResponseQueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
		}
	}
}

func (c *Client) handleIncomingMessage(msg types.Message) {
	attr, ok := msg.MessageAttributes[sqs.AttrCorrelationID]
	if !ok || msg.Body == nil {
		return
	}
	ch, ok := c.pendingRequests.Load(aws.ToString(attr.StringValue))
	if !ok {
		return
	}

	rsp, err := sqs.DecodeResponseBody(c.codec, aws.ToString(msg.Body))
	if err != nil {
		rsp = chain.Response{Err: fmt.Errorf("sqscli: decode response: %w", err)}
	}
	if rsp.StatusCode == 0 {
		if v, ok := msg.MessageAttributes[sqs.AttrStatusCode]; ok {
			rsp.StatusCode, _ = strconv.Atoi(aws.ToString(v.StringValue))
		}
	}

	select {
	case ch.(chan chain.Response) <- rsp:
	default:
	}
}

func stringValue(s string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(s)}
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
