package apigw

import "github.com/mohae/deepcopy"

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	DebugMode bool
	// ErrorBody wraps string bodies of 4xx/5xx responses as {"error": message}.
	ErrorBody bool
	// State is merged into every invocation's initial state.
	State map[string]any
}

var defaultOptions = &Options{
	State: map[string]any{},
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

func WithDebugMode(debug bool) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = debug
	})
}

func WithErrorBody(enabled bool) Option {
	return OptionFunc(func(o *Options) {
		o.ErrorBody = enabled
	})
}

func WithState(key string, value any) Option {
	return OptionFunc(func(o *Options) {
		o.State[key] = value
	})
}
