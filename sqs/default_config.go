package sqs

import (
	"fmt"

	"github.com/aura-studio/bragg/internal/confpath"
)

// WithDefaultConfigFile loads sqs.yaml (or .yml, optionally under sqs/)
// from the working directory or the executable's directory.
// It panics if no file is found.
func WithDefaultConfigFile() Option {
	p, err := confpath.Find("sqs")
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("sqs.WithDefaultConfigFile: %w", err))
		})
	}
	return WithConfigFile(p)
}
