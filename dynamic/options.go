package dynamic

import (
	"github.com/aura-studio/dynamic"
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Package struct {
	Package string
	Version string
	Tunnel  dynamic.Tunnel
}

type Options struct {
	// Toolchain the packages were built with.
	Os       string
	Arch     string
	Compiler string
	Variant  string

	LocalWarehouse        string
	RemoteWarehouse       string
	PackageNamespace      string
	PackageDefaultVersion string
	StaticPackages        []*Package
	PreloadPackages       []*Package

	// APIPrefix and MetaPrefix are the path prefixes served by Handler.
	APIPrefix  string
	MetaPrefix string
	DebugMode  bool
}

var defaultOptions = &Options{
	StaticPackages:  []*Package{},
	PreloadPackages: []*Package{},
	APIPrefix:       "/api",
	MetaPrefix:      "/meta",
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

func WithToolchain(os, arch, compiler, variant string) Option {
	return OptionFunc(func(o *Options) {
		o.Os = os
		o.Arch = arch
		o.Compiler = compiler
		o.Variant = variant
	})
}

func WithWarehouse(local, remote string) Option {
	return OptionFunc(func(o *Options) {
		o.LocalWarehouse = local
		o.RemoteWarehouse = remote
	})
}

func WithNamespace(namespace string) Option {
	return OptionFunc(func(o *Options) {
		o.PackageNamespace = namespace
	})
}

func WithDefaultVersion(version string) Option {
	return OptionFunc(func(o *Options) {
		o.PackageDefaultVersion = version
	})
}

// WithStaticPackage registers an in-process tunnel instead of loading it
// from a warehouse.
func WithStaticPackage(pkg, version string, tunnel dynamic.Tunnel) Option {
	return OptionFunc(func(o *Options) {
		o.StaticPackages = append(o.StaticPackages, &Package{Package: pkg, Version: version, Tunnel: tunnel})
	})
}

func WithPreloadPackage(pkg, version string) Option {
	return OptionFunc(func(o *Options) {
		o.PreloadPackages = append(o.PreloadPackages, &Package{Package: pkg, Version: version})
	})
}

func WithAPIPrefix(prefix string) Option {
	return OptionFunc(func(o *Options) {
		o.APIPrefix = prefix
	})
}

func WithMetaPrefix(prefix string) Option {
	return OptionFunc(func(o *Options) {
		o.MetaPrefix = prefix
	})
}

func WithDebugMode(debug bool) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = debug
	})
}
