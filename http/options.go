package http

import (
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type HttpOption func(*Options)

func (f HttpOption) Apply(o *Options) { f(o) }

type Options struct {
	Address   string
	DebugMode bool
	CorsMode  bool
	// StaticLinkMap rewrites an exact request path before it reaches the chain.
	StaticLinkMap map[string]string
	// PrefixLinkMap rewrites a path prefix before it reaches the chain.
	PrefixLinkMap map[string]string
	// State is merged into every request's initial state.
	State map[string]any
}

var defaultOptions = &Options{
	Address:       ":8080",
	StaticLinkMap: map[string]string{},
	PrefixLinkMap: map[string]string{},
	State:         map[string]any{},
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

// -------------- Http Options ----------------
func WithAddress(addr string) Option {
	return HttpOption(func(o *Options) {
		o.Address = addr
	})
}

func WithDebugMode() Option {
	return HttpOption(func(o *Options) {
		o.DebugMode = true
	})
}

func WithCors() Option {
	return HttpOption(func(o *Options) {
		o.CorsMode = true
	})
}

func WithStaticLink(srcPath, dstPath string) Option {
	return HttpOption(func(o *Options) {
		o.StaticLinkMap[srcPath] = dstPath
	})
}

func WithPrefixLink(srcPrefix string, dstPrefix string) Option {
	return HttpOption(func(o *Options) {
		o.PrefixLinkMap[srcPrefix] = dstPrefix
	})
}

func WithState(key string, value any) Option {
	return HttpOption(func(o *Options) {
		o.State[key] = value
	})
}
