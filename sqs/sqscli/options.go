package sqscli

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/mohae/deepcopy"
)

type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type Options struct {
	SQSClient        SQSClient
	RequestQueueURL  string
	ResponseQueueURL string
	Codec            string
	DefaultTimeout   time.Duration
	// WaitTime is the long-poll duration of the response listener.
	WaitTime time.Duration
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

var defaultOptions = &Options{
	Codec:          "json",
	DefaultTimeout: 30 * time.Second,
	WaitTime:       20 * time.Second,
}

func NewOptions(opts ...Option) *Options {
	o := deepcopy.Copy(defaultOptions).(*Options)
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	return o
}

func WithSQSClient(client SQSClient) Option {
	return OptionFunc(func(o *Options) {
		o.SQSClient = client
	})
}

func WithRequestQueueURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.RequestQueueURL = url
	})
}

// WithResponseQueueURL enables Call: replies are read from this queue.
func WithResponseQueueURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.ResponseQueueURL = url
	})
}

func WithCodec(name string) Option {
	return OptionFunc(func(o *Options) {
		o.Codec = name
	})
}

func WithDefaultTimeout(timeout time.Duration) Option {
	return OptionFunc(func(o *Options) {
		o.DefaultTimeout = timeout
	})
}

func WithWaitTime(wait time.Duration) Option {
	return OptionFunc(func(o *Options) {
		o.WaitTime = wait
	})
}
