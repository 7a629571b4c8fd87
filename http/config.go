package http

import (
	"fmt"
	"os"

	"github.com/aura-studio/bragg/internal/confpath"
	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	Address    string `yaml:"address"`
	Debug      bool   `yaml:"debug"`
	Cors       bool   `yaml:"cors"`
	StaticLink []struct {
		SrcPath string `yaml:"srcPath"`
		DstPath string `yaml:"dstPath"`
	} `yaml:"staticLink"`
	PrefixLink []struct {
		SrcPrefix string `yaml:"srcPrefix"`
		DstPrefix string `yaml:"dstPrefix"`
	} `yaml:"prefixLink"`
	State map[string]any `yaml:"state"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, err
	}

	return HttpOption(func(o *Options) {
		if cfg.Address != "" {
			o.Address = cfg.Address
		}
		o.DebugMode = cfg.Debug
		o.CorsMode = cfg.Cors

		for _, link := range cfg.StaticLink {
			if link.SrcPath == "" || link.DstPath == "" {
				continue
			}
			o.StaticLinkMap[link.SrcPath] = link.DstPath
		}
		for _, link := range cfg.PrefixLink {
			if link.SrcPrefix == "" || link.DstPrefix == "" {
				continue
			}
			o.PrefixLinkMap[link.SrcPrefix] = link.DstPrefix
		}
		for k, v := range cfg.State {
			o.State[k] = v
		}
	}), nil
}

// WithConfig parses YAML bytes following http.yaml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return HttpOption(func(*Options) {
			panic(fmt.Errorf("http.WithConfig: %w", err))
		})
	}
	return opt
}

// WithConfigFile loads a YAML file and applies it to Options.
// It panics if the file cannot be read or YAML is invalid.
func WithConfigFile(path string) Option {
	b, err := os.ReadFile(path)
	if err != nil {
		return HttpOption(func(*Options) {
			panic(fmt.Errorf("http.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}

// WithDefaultConfig loads http.yaml from the working directory or the
// executable's directory. It panics if the file cannot be found or read.
func WithDefaultConfig() Option {
	p, err := confpath.Find("http")
	if err != nil {
		return HttpOption(func(*Options) {
			panic(fmt.Errorf("http.WithDefaultConfig: %w", err))
		})
	}
	return WithConfigFile(p)
}
