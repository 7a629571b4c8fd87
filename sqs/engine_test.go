package sqs_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/sqs"
	events "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu   sync.Mutex
	sent []*awssqs.SendMessageInput
	err  error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *awssqs.SendMessageInput, _ ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &awssqs.SendMessageOutput{MessageId: aws.String("reply")}, nil
}

func newChain() *chain.Engine {
	c := chain.NewEngine()
	c.Use(func(ctx *chain.Context, _ chain.Result) chain.Outcome {
		switch ctx.Path() {
		case "/ok":
			return chain.Return(map[string]any{"id": ctx.Extra().String(sqs.StateMessageID)})
		case "/missing":
			return ctx.Throw(http.StatusNotFound, "Resource not found")
		case "/boom":
			return chain.Fail(errors.New("boom"))
		}
		return ctx.Throw(http.StatusServiceUnavailable, "unavailable")
	})
	return c
}

func record(id, body string, attrs map[string]string) events.SQSMessage {
	msg := events.SQSMessage{MessageId: id, Body: body, Attributes: map[string]string{"ApproximateReceiveCount": "2"}}
	if len(attrs) > 0 {
		msg.MessageAttributes = make(map[string]events.SQSMessageAttribute)
		for k, v := range attrs {
			msg.MessageAttributes[k] = events.SQSMessageAttribute{DataType: "String", StringValue: aws.String(v)}
		}
	}
	return msg
}

func batch() events.SQSEvent {
	return events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `{"path":"/ok"}`, nil),
		record("m2", `{"path":"/boom"}`, nil),
		record("m3", `{"path":"/missing"}`, nil),
		record("m4", `not json`, nil),
		record("m5", `{"path":"/other"}`, nil),
	}}
}

func failedIDs(rsp events.SQSEventResponse) []string {
	var ids []string
	for _, f := range rsp.BatchItemFailures {
		ids = append(ids, f.ItemIdentifier)
	}
	return ids
}

func TestEnginePartialMode(t *testing.T) {
	e := sqs.NewEngine(newChain(), sqs.WithPartialMode(true), sqs.WithSQSClient(&fakeSQS{}))

	rsp, err := e.Invoke(context.Background(), batch())
	require.NoError(t, err)
	require.Equal(t, []string{"m2", "m4", "m5"}, failedIDs(rsp))
}

func TestEngineWholeBatch(t *testing.T) {
	e := sqs.NewEngine(newChain(), sqs.WithSQSClient(&fakeSQS{}))

	rsp, err := e.Invoke(context.Background(), batch())
	require.Error(t, err)
	require.Empty(t, rsp.BatchItemFailures)

	ok := events.SQSEvent{Records: []events.SQSMessage{record("m1", `{"path":"/ok"}`, nil)}}
	rsp, err = e.Invoke(context.Background(), ok)
	require.NoError(t, err)
	require.Empty(t, rsp.BatchItemFailures)
}

func TestEngineSuspendMode(t *testing.T) {
	e := sqs.NewEngine(newChain(), sqs.WithSuspendMode(true), sqs.WithPartialMode(true))

	rsp, err := e.Invoke(context.Background(), batch())
	require.ErrorContains(t, err, "boom")
	require.Empty(t, rsp.BatchItemFailures)
}

func TestEngineReply(t *testing.T) {
	for _, codec := range []string{invoke.CodecJSON, invoke.CodecProto} {
		t.Run(codec, func(t *testing.T) {
			fake := &fakeSQS{}
			e := sqs.NewEngine(newChain(),
				sqs.WithSQSClient(fake),
				sqs.WithReplyMode(true),
				sqs.WithResponseQueueURL("https://sqs/default"),
				sqs.WithCodec(codec),
			)
			cdc, err := invoke.CodecByName(codec)
			require.NoError(t, err)

			payload, err := cdc.EncodeEvent(chain.Event{"path": "/ok"})
			require.NoError(t, err)
			body := sqs.EncodeBody(cdc, payload)

			ev := events.SQSEvent{Records: []events.SQSMessage{
				record("m1", body, map[string]string{sqs.AttrReplyTo: "https://sqs/reply", sqs.AttrCorrelationID: "c-1"}),
				record("m2", body, nil),
			}}
			_, err = e.Invoke(context.Background(), ev)
			require.NoError(t, err)
			require.Len(t, fake.sent, 2)

			first := fake.sent[0]
			require.Equal(t, "https://sqs/reply", aws.ToString(first.QueueUrl))
			require.Equal(t, "c-1", aws.ToString(first.MessageAttributes[sqs.AttrCorrelationID].StringValue))
			require.Equal(t, "200", aws.ToString(first.MessageAttributes[sqs.AttrStatusCode].StringValue))

			rsp, err := sqs.DecodeResponseBody(cdc, aws.ToString(first.MessageBody))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, rsp.StatusCode)
			require.Equal(t, map[string]any{"id": "m1"}, rsp.Body)

			require.Equal(t, "https://sqs/default", aws.ToString(fake.sent[1].QueueUrl))
		})
	}
}

func TestEngineConcurrentReplies(t *testing.T) {
	fake := &fakeSQS{}
	e := sqs.NewEngine(newChain(),
		sqs.WithSQSClient(fake),
		sqs.WithReplyMode(true),
		sqs.WithResponseQueueURL("https://sqs/default"),
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Invoke(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
				record("m", `{"path":"/ok"}`, nil),
			}})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 16)
}

func TestEngineReplyFailure(t *testing.T) {
	fake := &fakeSQS{err: errors.New("throttled")}
	e := sqs.NewEngine(newChain(), sqs.WithSQSClient(fake), sqs.WithReplyMode(true), sqs.WithPartialMode(true))

	ev := events.SQSEvent{Records: []events.SQSMessage{
		record("m1", `{"path":"/ok"}`, map[string]string{sqs.AttrReplyTo: "https://sqs/reply"}),
		record("m2", `{"path":"/ok"}`, nil),
	}}
	rsp, err := e.Invoke(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, failedIDs(rsp))
}

func TestEngineMessageState(t *testing.T) {
	c := chain.NewEngine()
	c.Use(func(ctx *chain.Context, _ chain.Result) chain.Outcome {
		attrs, _ := ctx.Extra().Get(sqs.StateAttributes).(map[string]any)
		return chain.Return([]any{ctx.Extra().Get(sqs.StateReceiveCount), attrs["tenant"]})
	})

	fake := &fakeSQS{}
	e := sqs.NewEngine(c, sqs.WithSQSClient(fake), sqs.WithReplyMode(true))
	msg := record("m1", `{}`, map[string]string{"tenant": "acme", sqs.AttrReplyTo: "q"})
	_, err := e.Invoke(context.Background(), events.SQSEvent{Records: []events.SQSMessage{msg}})
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)
	require.JSONEq(t, `{"statusCode":200,"body":[2,"acme"]}`, aws.ToString(fake.sent[0].MessageBody))
}

func TestEngineStopped(t *testing.T) {
	c := newChain()
	e := sqs.NewEngine(c, sqs.WithPartialMode(true))
	e.Stop()

	ev := events.SQSEvent{Records: []events.SQSMessage{record("m1", `{"path":"/ok"}`, nil)}}
	rsp, err := e.Invoke(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, failedIDs(rsp))

	e.Start()
	rsp, err = e.Invoke(context.Background(), ev)
	require.NoError(t, err)
	require.Empty(t, rsp.BatchItemFailures)
}

func TestWithConfig(t *testing.T) {
	o := sqs.NewOptions(sqs.WithConfig([]byte(`
debug: true
codec: proto
replyMode: true
responseQueueUrl: https://sqs/replies
partialMode: true
`)))
	require.True(t, o.DebugMode)
	require.True(t, o.ReplyMode)
	require.True(t, o.PartialMode)
	require.False(t, o.SuspendMode)
	require.Equal(t, invoke.CodecProto, o.Codec)
	require.Equal(t, "https://sqs/replies", o.ResponseQueueURL)

	require.Panics(t, func() { sqs.NewOptions(sqs.WithConfig([]byte("codec: xml"))) })
	require.Panics(t, func() { sqs.NewOptions(sqs.WithConfig([]byte("partialRetry: true"))) })
}
