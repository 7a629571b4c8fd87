package chain

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

type yamlChainConfig struct {
	Mode struct {
		Debug        bool `yaml:"debug"`
		ExposeErrors bool `yaml:"exposeErrors"`
	} `yaml:"mode"`
	Response struct {
		DefaultStatus int               `yaml:"defaultStatus"`
		Headers       map[string]string `yaml:"headers"`
	} `yaml:"response"`
	Keys map[string][]string `yaml:"keys"`
}

func optionFromChainConfig(cfg yamlChainConfig) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = cfg.Mode.Debug
		o.ExposeErrors = cfg.Mode.ExposeErrors

		if cfg.Response.DefaultStatus != 0 {
			WithDefaultStatus(cfg.Response.DefaultStatus).Apply(o)
		}

		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range cfg.Response.Headers {
			if k == "" {
				continue
			}
			o.Headers[k] = v
		}

		if o.Keys == nil {
			o.Keys = make(KeyMap)
		}
		for field, keys := range cfg.Keys {
			switch field {
			case FieldMethod, FieldPath, FieldBody, FieldQuery, FieldParams,
				FieldIdentity, FieldHeaders, FieldRequestID:
				o.Keys[field] = append(o.Keys[field], keys...)
			default:
				panic(fmt.Errorf("chain: unrecognized key field: %q", field))
			}
		}
	})
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlChainConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return optionFromChainConfig(cfg), nil
}

// WithConfig parses YAML bytes following chain.yml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("chain.WithConfig: %w", err))
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
			panic(fmt.Errorf("chain.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
