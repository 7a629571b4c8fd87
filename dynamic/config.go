package dynamic

import (
	"fmt"
	"os"

	"github.com/aura-studio/bragg/internal/confpath"
	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	Environment struct {
		Toolchain struct {
			OS       string `yaml:"os"`
			Arch     string `yaml:"arch"`
			Compiler string `yaml:"compiler"`
			Variant  string `yaml:"variant"`
		} `yaml:"toolchain"`
		Warehouse struct {
			Local  string `yaml:"local"`
			Remote string `yaml:"remote"`
		} `yaml:"warehouse"`
	} `yaml:"environment"`

	Package struct {
		Namespace      string `yaml:"namespace"`
		DefaultVersion string `yaml:"defaultVersion"`
		Preload        []struct {
			Package string `yaml:"package"`
			Version string `yaml:"version"`
		} `yaml:"preload"`
	} `yaml:"package"`

	Route struct {
		API  string `yaml:"api"`
		Meta string `yaml:"meta"`
	} `yaml:"route"`

	Debug bool `yaml:"debug"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, err
	}

	return OptionFunc(func(o *Options) {
		tc := cfg.Environment.Toolchain
		WithToolchain(tc.OS, tc.Arch, tc.Compiler, tc.Variant).Apply(o)
		WithWarehouse(cfg.Environment.Warehouse.Local, cfg.Environment.Warehouse.Remote).Apply(o)

		o.PackageNamespace = cfg.Package.Namespace
		o.PackageDefaultVersion = cfg.Package.DefaultVersion
		o.DebugMode = cfg.Debug

		for _, p := range cfg.Package.Preload {
			if p.Package == "" {
				continue
			}
			o.PreloadPackages = append(o.PreloadPackages, &Package{Package: p.Package, Version: p.Version})
		}

		if cfg.Route.API != "" {
			o.APIPrefix = cfg.Route.API
		}
		if cfg.Route.Meta != "" {
			o.MetaPrefix = cfg.Route.Meta
		}
	}), nil
}

// WithConfig parses YAML bytes following dynamic.yml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("dynamic.WithConfig: %w", err))
		})
	}
	return opt
}

// WithConfigFile loads a YAML file and applies it to Options.
// It panics if the file cannot be read or YAML is invalid.
func WithConfigFile(path string) Option {
	b, err := os.ReadFile(path)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("dynamic.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}

// WithDefaultConfigFile loads dynamic.yaml from the working directory or the
// executable's directory. It panics if no file is found.
func WithDefaultConfigFile() Option {
	p, err := confpath.Find("dynamic")
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("dynamic.WithDefaultConfigFile: %w", err))
		})
	}
	return WithConfigFile(p)
}
