package sqs

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	events "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message attributes understood on request records and set on replies.
const (
	AttrReplyTo       = "replyTo"
	AttrCorrelationID = "correlationId"
	AttrStatusCode    = "statusCode"
)

// Initial state keys visible through chain.Context.Extra.
const (
	StateMessageID      = "messageId"
	StateEventSourceARN = "eventSourceArn"
	StateReceiveCount   = "receiveCount"
	StateAttributes     = "attributes"
)

type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Engine dispatches every record of an SQS batch through the chain.
type Engine struct {
	*Options
	*chain.Engine
	codec      invoke.Codec
	sqsClient  SQSClient
	clientOnce sync.Once
	clientErr  error
}

func NewEngine(c *chain.Engine, opts ...Option) *Engine {
	e := &Engine{
		Options: NewOptions(opts...),
		Engine:  c,
	}
	codec, err := invoke.CodecByName(e.Codec)
	if err != nil {
		panic(err)
	}
	e.codec = codec
	e.sqsClient = e.SQSClient
	return e
}

// Invoke handles one SQS batch. In PartialMode failed records are reported as
// batch item failures; otherwise any failure fails the whole batch. In
// SuspendMode the first failure stops processing immediately.
func (e *Engine) Invoke(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range ev.Records {
		if err := e.handleMessage(ctx, msg); err != nil {
			if e.DebugMode {
				log.Printf("[SQS] Message %s failed: %v", msg.MessageId, err)
			}
			if e.SuspendMode {
				return resp, err
			}
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}

	if e.PartialMode || len(resp.BatchItemFailures) == 0 {
		return resp, nil
	}
	return events.SQSEventResponse{}, fmt.Errorf("sqs: batch item failures: %d", len(resp.BatchItemFailures))
}

func (e *Engine) handleMessage(ctx context.Context, msg events.SQSMessage) error {
	ev, err := e.decodeBody(msg.Body)
	if err != nil {
		return fmt.Errorf("sqs: decode message %s: %w", msg.MessageId, err)
	}

	if e.DebugMode {
		log.Printf("[SQS] Request: %s %v", msg.MessageId, ev)
	}

	rsp := e.Handle(ctx, ev, messageState(msg))

	if e.DebugMode {
		log.Printf("[SQS] Response: %s %d %v", msg.MessageId, rsp.StatusCode, rsp.Body)
	}

	if rsp.Err != nil {
		return rsp.Err
	}
	if rsp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("sqs: message %s answered %d", msg.MessageId, rsp.StatusCode)
	}

	if !e.ReplyMode {
		return nil
	}
	queueURL := e.ResponseQueueURL
	if v := stringAttribute(msg, AttrReplyTo); v != "" {
		queueURL = v
	}
	if queueURL == "" {
		return nil
	}
	return e.reply(ctx, queueURL, stringAttribute(msg, AttrCorrelationID), rsp)
}

func (e *Engine) reply(ctx context.Context, queueURL, correlationID string, rsp chain.Response) error {
	body, err := e.encodeResponse(rsp)
	if err != nil {
		return fmt.Errorf("sqs: encode response: %w", err)
	}

	client, err := e.client(ctx)
	if err != nil {
		return err
	}

	attrs := map[string]types.MessageAttributeValue{
		AttrStatusCode: {
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.Itoa(rsp.StatusCode)),
		},
	}
	if correlationID != "" {
		attrs[AttrCorrelationID] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(correlationID),
		}
	}

	if _, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(body),
		MessageAttributes: attrs,
	}); err != nil {
		return fmt.Errorf("sqs: send response: %w", err)
	}
	return nil
}

// client returns the injected client, or one built from the default AWS
// configuration on first use.
func (e *Engine) client(ctx context.Context) (SQSClient, error) {
	e.clientOnce.Do(func() {
		if e.sqsClient != nil {
			return
		}
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			e.clientErr = fmt.Errorf("sqs: load aws config: %w", err)
			return
		}
		e.sqsClient = sqs.NewFromConfig(cfg)
	})
	if e.clientErr != nil {
		return nil, e.clientErr
	}
	return e.sqsClient, nil
}

func (e *Engine) decodeBody(body string) (chain.Event, error) {
	return DecodeBody(e.codec, body)
}

func (e *Engine) encodeResponse(rsp chain.Response) (string, error) {
	b, err := e.codec.EncodeResponse(rsp)
	if err != nil {
		return "", err
	}
	return EncodeBody(e.codec, b), nil
}

// EncodeBody turns a codec payload into an SQS message body.
func EncodeBody(codec invoke.Codec, b []byte) string {
	if codec.Name() == invoke.CodecJSON {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBody is the inverse of EncodeBody for events.
func DecodeBody(codec invoke.Codec, body string) (chain.Event, error) {
	if codec.Name() == invoke.CodecJSON {
		return codec.DecodeEvent([]byte(body))
	}
	b, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, err
	}
	return codec.DecodeEvent(b)
}

// DecodeResponseBody decodes a reply body produced by the engine.
func DecodeResponseBody(codec invoke.Codec, body string) (chain.Response, error) {
	b := []byte(body)
	if codec.Name() != invoke.CodecJSON {
		var err error
		if b, err = base64.StdEncoding.DecodeString(body); err != nil {
			return chain.Response{}, err
		}
	}
	return codec.DecodeResponse(b)
}

func messageState(msg events.SQSMessage) map[string]any {
	attrs := make(map[string]any, len(msg.MessageAttributes))
	for k, v := range msg.MessageAttributes {
		if v.StringValue != nil {
			attrs[k] = *v.StringValue
		}
	}
	state := map[string]any{
		StateMessageID:      msg.MessageId,
		StateEventSourceARN: msg.EventSourceARN,
		StateAttributes:     attrs,
	}
	if n, err := strconv.Atoi(msg.Attributes["ApproximateReceiveCount"]); err == nil {
		state[StateReceiveCount] = n
	}
	return state
}

func stringAttribute(msg events.SQSMessage, name string) string {
	if v, ok := msg.MessageAttributes[name]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}
