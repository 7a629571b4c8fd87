package invoke

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// Option is the interface for configuring Options
type Option interface {
	Apply(o *Options)
}

// OptionFunc is a function that implements the Option interface
type OptionFunc func(*Options)

// Apply implements the Option interface
func (f OptionFunc) Apply(o *Options) { f(o) }

// Options holds the configuration for the invoke engine
type Options struct {
	Codec     string         // payload codec, json or proto
	State     map[string]any // merged into every invocation's initial state
	DebugMode bool
}

var defaultOptions = &Options{
	Codec:     CodecJSON,
	State:     map[string]any{},
	DebugMode: false,
}

// NewOptions creates a new Options instance with the given options applied
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

// WithDebugMode sets the debug mode for the invoke engine
func WithDebugMode(debug bool) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = debug
	})
}

// WithCodec selects the payload codec by name
func WithCodec(name string) Option {
	return OptionFunc(func(o *Options) {
		if _, err := CodecByName(name); err != nil {
			panic(err)
		}
		o.Codec = name
	})
}

// WithState adds a value to the initial state of every invocation
func WithState(key string, value any) Option {
	return OptionFunc(func(o *Options) {
		if key == "" {
			panic(fmt.Errorf("invoke: empty state key"))
		}
		o.State[key] = value
	})
}
