package server

import (
	"fmt"
	"os"

	"github.com/aura-studio/bragg/apigw"
	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/dynamic"
	"github.com/aura-studio/bragg/http"
	"github.com/aura-studio/bragg/internal/confpath"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/sqs"
	yaml "gopkg.in/yaml.v2"
)

type yamlServerConfig struct {
	Lambda  string `yaml:"lambda"`
	Chain   any    `yaml:"chain"`
	Invoke  any    `yaml:"invoke"`
	APIGW   any    `yaml:"apigw"`
	SQS     any    `yaml:"sqs"`
	HTTP    any    `yaml:"http"`
	Dynamic any    `yaml:"dynamic"`
}

// section re-encodes one top-level section so the owning package can parse
// it with its own WithConfig.
func section(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("server.WithServeConfig: %w", err))
	}
	return b
}

// WithServeConfig parses YAML bytes following lambda.yml structure: the
// `lambda:` key selects the adapter and every other top-level section is
// handed to the package of the same name.
// It panics if the YAML is invalid.
func WithServeConfig(yamlBytes []byte) Option {
	var cfg yamlServerConfig
	if err := yaml.UnmarshalStrict(yamlBytes, &cfg); err != nil {
		panic(fmt.Errorf("server.WithServeConfig: %w", err))
	}

	return OptionFunc(func(o *Options) {
		if cfg.Lambda != "" {
			o.Lambda = cfg.Lambda
		}
		if b := section(cfg.Chain); b != nil {
			o.Chain = append(o.Chain, chain.WithConfig(b))
		}
		if b := section(cfg.Invoke); b != nil {
			o.Invoke = append(o.Invoke, invoke.WithConfig(b))
		}
		if b := section(cfg.APIGW); b != nil {
			o.APIGW = append(o.APIGW, apigw.WithConfig(b))
		}
		if b := section(cfg.SQS); b != nil {
			o.Sqs = append(o.Sqs, sqs.WithConfig(b))
		}
		if b := section(cfg.HTTP); b != nil {
			o.Http = append(o.Http, http.WithConfig(b))
		}
		if b := section(cfg.Dynamic); b != nil {
			o.Dynamic = append(o.Dynamic, dynamic.WithConfig(b))
		}
	})
}

// WithServeConfigFile loads a YAML file and applies it as an Option.
func WithServeConfigFile(path string) Option {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("server.WithServeConfigFile(%s): %w", path, err))
	}
	return WithServeConfig(b)
}

// DefaultServeConfigNames are the config base names searched, in order.
func DefaultServeConfigNames() []string {
	return []string{"lambda", "server", "bootstrap", "app", "config"}
}

// FindDefaultServeConfigFile searches the working directory, then the
// executable's directory, for one of DefaultServeConfigNames.
func FindDefaultServeConfigFile() (string, error) {
	for _, name := range DefaultServeConfigNames() {
		if p, err := confpath.Find(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("server config not found (expected one of %v)", DefaultServeConfigNames())
}

// WithDefaultServeConfigFile finds and loads the default server config file.
func WithDefaultServeConfigFile() Option {
	p, err := FindDefaultServeConfigFile()
	if err != nil {
		panic(fmt.Errorf("server.WithDefaultServeConfigFile: %w", err))
	}
	return WithServeConfigFile(p)
}
