package sqscli

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/sqs"
	events "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// mockSQSClient keeps one in-memory queue per URL.
type mockSQSClient struct {
	mu       sync.Mutex
	queues   map[string][]types.Message
	sent     []*awssqs.SendMessageInput
	deleted  []*awssqs.DeleteMessageInput
	notEmpty chan struct{}
}

func newMockSQSClient() *mockSQSClient {
	return &mockSQSClient{queues: make(map[string][]types.Message), notEmpty: make(chan struct{}, 1)}
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	url := aws.ToString(params.QueueUrl)
	m.queues[url] = append(m.queues[url], types.Message{
		Body:              params.MessageBody,
		MessageAttributes: params.MessageAttributes,
		ReceiptHandle:     aws.String("handle"),
	})
	select {
	case m.notEmpty <- struct{}{}:
	default:
	}
	return &awssqs.SendMessageOutput{}, nil
}

func (m *mockSQSClient) ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error) {
	url := aws.ToString(params.QueueUrl)
	for {
		m.mu.Lock()
		if msgs := m.queues[url]; len(msgs) > 0 {
			m.queues[url] = nil
			m.mu.Unlock()
			return &awssqs.ReceiveMessageOutput{Messages: msgs}, nil
		}
		m.mu.Unlock()

		select {
		case <-m.notEmpty:
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *mockSQSClient) DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, params)
	return &awssqs.DeleteMessageOutput{}, nil
}

// take removes and returns the messages waiting on url.
func (m *mockSQSClient) take(url string) []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.queues[url]
	m.queues[url] = nil
	return msgs
}

// serveOnce feeds the request queue to engine until one message is handled.
func serveOnce(t *testing.T, mock *mockSQSClient, engine *sqs.Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs := mock.take("req-queue")
		if len(msgs) == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		var ev events.SQSEvent
		for i, msg := range msgs {
			rec := events.SQSMessage{MessageId: string(rune('a' + i)), Body: aws.ToString(msg.Body)}
			rec.MessageAttributes = make(map[string]events.SQSMessageAttribute)
			for k, v := range msg.MessageAttributes {
				rec.MessageAttributes[k] = events.SQSMessageAttribute{StringValue: v.StringValue, DataType: aws.ToString(v.DataType)}
			}
			ev.Records = append(ev.Records, rec)
		}
		if _, err := engine.Invoke(context.Background(), ev); err != nil {
			t.Errorf("engine invoke: %v", err)
		}
		return
	}
	t.Error("no request reached the queue")
}

func newEngine(mock *mockSQSClient, codec string) *sqs.Engine {
	c := chain.NewEngine()
	c.Use(func(ctx *chain.Context, _ chain.Result) chain.Outcome {
		if ctx.Path() != "/test" {
			return ctx.Throw(http.StatusNotFound, "Resource not found")
		}
		return chain.Return("OK " + ctx.Request().Body.String("msg"))
	})
	return sqs.NewEngine(c, sqs.WithSQSClient(mock), sqs.WithReplyMode(true), sqs.WithCodec(codec))
}

func TestClient_Call(t *testing.T) {
	for _, codec := range []string{"json", "proto"} {
		t.Run(codec, func(t *testing.T) {
			mock := newMockSQSClient()
			client, err := NewClient(context.Background(),
				WithSQSClient(mock),
				WithRequestQueueURL("req-queue"),
				WithResponseQueueURL("resp-queue"),
				WithCodec(codec),
				WithDefaultTimeout(2*time.Second),
			)
			if err != nil {
				t.Fatal(err)
			}
			defer client.Close()

			go serveOnce(t, mock, newEngine(mock, codec))

			rsp, err := client.Call(context.Background(), chain.Event{"path": "/test", "body": map[string]any{"msg": "hello"}})
			if err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if rsp.StatusCode != http.StatusOK || rsp.Body != "OK hello" {
				t.Fatalf("got %d %v", rsp.StatusCode, rsp.Body)
			}
		})
	}
}

func TestClient_CallTimeout(t *testing.T) {
	mock := newMockSQSClient()
	client, err := NewClient(context.Background(),
		WithSQSClient(mock),
		WithRequestQueueURL("req-queue"),
		WithResponseQueueURL("resp-queue"),
		WithDefaultTimeout(100*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.Call(context.Background(), chain.Event{"path": "/test"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Send(t *testing.T) {
	mock := newMockSQSClient()
	client, err := NewClient(context.Background(), WithSQSClient(mock), WithRequestQueueURL("req-queue"))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.Call(context.Background(), chain.Event{}); err != ErrNoResponseQueue {
		t.Errorf("Call without response queue err = %v", err)
	}

	if err := client.Send(context.Background(), chain.Event{"path": "/test"}); err != nil {
		t.Fatal(err)
	}
	msgs := mock.take("req-queue")
	if len(msgs) != 1 {
		t.Fatalf("queued %d messages", len(msgs))
	}
	ev, err := chain.EventFromJSON([]byte(aws.ToString(msgs[0].Body)))
	if err != nil {
		t.Fatal(err)
	}
	if ev["path"] != "/test" || ev["requestId"] == nil {
		t.Errorf("event = %v", ev)
	}
	if len(msgs[0].MessageAttributes) != 0 {
		t.Errorf("fire-and-forget message carries attributes %v", msgs[0].MessageAttributes)
	}
}
