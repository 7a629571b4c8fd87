package invoke

import (
	"fmt"

	"github.com/aura-studio/bragg/internal/confpath"
)

// WithDefaultConfigFile loads invoke.yaml (or .yml, optionally under invoke/)
// from the working directory or the executable's directory.
// It panics if no file is found.
func WithDefaultConfigFile() Option {
	p, err := confpath.Find("invoke")
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("invoke.WithDefaultConfigFile: %w", err))
		})
	}
	return WithConfigFile(p)
}
