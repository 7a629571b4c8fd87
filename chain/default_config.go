package chain

import (
	"fmt"

	"github.com/aura-studio/bragg/internal/confpath"
)

// WithDefaultConfigFile loads chain.yaml (or .yml, optionally under chain/)
// from the working directory or the executable's directory.
// It panics if no file is found.
func WithDefaultConfigFile() Option {
	p, err := confpath.Find("chain")
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("chain.WithDefaultConfigFile: %w", err))
		})
	}
	return WithConfigFile(p)
}
