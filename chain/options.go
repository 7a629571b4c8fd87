package chain

import (
	"fmt"
	"net/http"

	"github.com/mohae/deepcopy"
)

// Logger receives the engine's diagnostic lines. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	DebugMode     bool
	ExposeErrors  bool              // echo failure messages in 500 bodies
	DefaultStatus int               // status used when no handler sets one
	Keys          KeyMap            // extra event aliases, tried before the defaults
	Headers       map[string]string // headers added to every response
	Logger        Logger
	ErrorHandler  func(*Context, error)
}

var defaultOptions = &Options{
	DebugMode:     false,
	ExposeErrors:  false,
	DefaultStatus: http.StatusOK,
	Keys:          KeyMap{},
	Headers:       map[string]string{},
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

func WithDebugMode(debug bool) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = debug
	})
}

// WithExposeErrors makes 500 responses carry the failure message instead of
// the generic status text.
func WithExposeErrors(expose bool) Option {
	return OptionFunc(func(o *Options) {
		o.ExposeErrors = expose
	})
}

func WithDefaultStatus(status int) Option {
	return OptionFunc(func(o *Options) {
		if status < 100 || status > 599 {
			panic(fmt.Errorf("chain: invalid default status: %d", status))
		}
		o.DefaultStatus = status
	})
}

// WithKeys adds event aliases for field, tried before the built-in ones.
func WithKeys(field string, keys ...string) Option {
	return OptionFunc(func(o *Options) {
		o.Keys[field] = append(o.Keys[field], keys...)
	})
}

func WithHeader(key, value string) Option {
	return OptionFunc(func(o *Options) {
		o.Headers[key] = value
	})
}

func WithLogger(l Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = l
	})
}

// WithErrorHandler registers a callback invoked with the cause of every
// unexpected failure.
func WithErrorHandler(fn func(*Context, error)) Option {
	return OptionFunc(func(o *Options) {
		o.ErrorHandler = fn
	})
}
