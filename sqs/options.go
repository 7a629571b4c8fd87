package sqs

import (
	"github.com/aura-studio/bragg/invoke"
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	SQSClient SQSClient
	// Codec decodes record bodies and encodes replies. JSON bodies are sent
	// as-is, protobuf bodies are base64 encoded.
	Codec string
	// ResponseQueueURL receives replies for records that carry no replyTo
	// attribute. Replies are only sent in ReplyMode.
	ResponseQueueURL string
	SuspendMode      bool
	PartialMode      bool
	ReplyMode        bool
	DebugMode        bool
}

var defaultOptions = &Options{
	Codec: invoke.CodecJSON,
}

func NewOptions(opts ...Option) *Options {
	options := deepcopy.Copy(defaultOptions).(*Options)
	options.init(opts...)
	return options
}

func (o *Options) init(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
}

// -------------- Sqs Options ----------------
func WithSQSClient(client SQSClient) Option {
	return OptionFunc(func(o *Options) {
		o.SQSClient = client
	})
}

// WithSuspendMode makes the first failed record abort the whole batch.
func WithSuspendMode(suspend bool) Option {
	return OptionFunc(func(o *Options) {
		o.SuspendMode = suspend
	})
}

// WithPartialMode reports failed records as batch item failures instead of
// failing the batch.
func WithPartialMode(partial bool) Option {
	return OptionFunc(func(o *Options) {
		o.PartialMode = partial
	})
}

func WithReplyMode(reply bool) Option {
	return OptionFunc(func(o *Options) {
		o.ReplyMode = reply
	})
}

func WithResponseQueueURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.ResponseQueueURL = url
	})
}

func WithCodec(name string) Option {
	return OptionFunc(func(o *Options) {
		if _, err := invoke.CodecByName(name); err != nil {
			panic(err)
		}
		o.Codec = name
	})
}

func WithDebugMode(debug bool) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = debug
	})
}
