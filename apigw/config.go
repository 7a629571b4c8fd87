package apigw

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

type yamlAPIGatewayConfig struct {
	Mode struct {
		Debug bool `yaml:"debug"`
	} `yaml:"mode"`
	ErrorBody bool           `yaml:"errorBody"`
	State     map[string]any `yaml:"state"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlAPIGatewayConfig
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return nil, err
	}
	return OptionFunc(func(o *Options) {
		o.DebugMode = cfg.Mode.Debug
		o.ErrorBody = cfg.ErrorBody
		for k, v := range cfg.State {
			o.State[k] = v
		}
	}), nil
}

// WithConfig parses YAML bytes following apigw.yml structure and applies it to Options.
// It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("apigw.WithConfig: %w", err))
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
			panic(fmt.Errorf("apigw.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
