package apigw

import (
	"fmt"

	"github.com/aura-studio/bragg/internal/confpath"
)

// WithDefaultConfigFile loads apigw.yaml (or .yml, optionally under apigw/)
// from the working directory or the executable's directory.
// It panics if no file is found.
func WithDefaultConfigFile() Option {
	p, err := confpath.Find("apigw")
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("apigw.WithDefaultConfigFile: %w", err))
		})
	}
	return WithConfigFile(p)
}
