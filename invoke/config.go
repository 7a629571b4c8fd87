package invoke

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// yamlInvokeConfig represents the YAML configuration structure for invoke module
type yamlInvokeConfig struct {
	Mode struct {
		Debug bool `yaml:"debug"`
	} `yaml:"mode"`
	Codec string         `yaml:"codec"`
	State map[string]any `yaml:"state"`
}

func optionFromInvokeConfig(cfg yamlInvokeConfig) Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = cfg.Mode.Debug

		if cfg.Codec != "" {
			WithCodec(cfg.Codec).Apply(o)
		}

		if o.State == nil {
			o.State = make(map[string]any)
		}
		for k, v := range cfg.State {
			if k == "" {
				continue
			}
			o.State[k] = v
		}
	})
}

// optionFromConfigBytes parses YAML bytes and returns an Option.
// Returns an error if the YAML is invalid.
func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlInvokeConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return optionFromInvokeConfig(cfg), nil
}

// WithConfig parses YAML bytes following invoke.yml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("invoke.WithConfig: %w", err))
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
			panic(fmt.Errorf("invoke.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
