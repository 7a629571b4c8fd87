package server

import (
	"github.com/aura-studio/bragg/apigw"
	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/dynamic"
	"github.com/aura-studio/bragg/http"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/sqs"
)

// Adapter names accepted by WithLambda and the `lambda:` config key.
const (
	LambdaInvoke = "invoke"
	LambdaAPIGW  = "apigw"
	LambdaSQS    = "sqs"
	LambdaHTTP   = "http"
)

type Option interface {
	Apply(*Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	Lambda   string
	Handlers []chain.HandlerFunc
	Chain    []chain.Option
	Invoke   []invoke.Option
	APIGW    []apigw.Option
	Sqs      []sqs.Option
	Http     []http.Option
	// Dynamic mounts the dynamic package handler after Handlers when set.
	Dynamic []dynamic.Option
}

func NewOptions(opts ...Option) *Options {
	o := &Options{Lambda: LambdaHTTP}
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	return o
}

func WithLambda(name string) Option {
	return OptionFunc(func(o *Options) {
		o.Lambda = name
	})
}

// WithHandlers registers chain handlers, in order.
func WithHandlers(handlers ...chain.HandlerFunc) Option {
	return OptionFunc(func(o *Options) {
		o.Handlers = append(o.Handlers, handlers...)
	})
}

func WithChain(opts ...chain.Option) Option {
	return OptionFunc(func(o *Options) {
		o.Chain = append(o.Chain, opts...)
	})
}

func WithInvoke(opts ...invoke.Option) Option {
	return OptionFunc(func(o *Options) {
		o.Invoke = append(o.Invoke, opts...)
	})
}

func WithAPIGW(opts ...apigw.Option) Option {
	return OptionFunc(func(o *Options) {
		o.APIGW = append(o.APIGW, opts...)
	})
}

func WithSQS(opts ...sqs.Option) Option {
	return OptionFunc(func(o *Options) {
		o.Sqs = append(o.Sqs, opts...)
	})
}

func WithHTTP(opts ...http.Option) Option {
	return OptionFunc(func(o *Options) {
		o.Http = append(o.Http, opts...)
	})
}

func WithDynamic(opts ...dynamic.Option) Option {
	return OptionFunc(func(o *Options) {
		o.Dynamic = append(o.Dynamic, opts...)
	})
}
