package invoke

import (
	"github.com/aura-studio/bragg/chain"
	"github.com/aws/aws-lambda-go/lambda"
)

// engine is the global engine started by Serve
var engine *Engine

// Serve wraps c in an Engine and hands it to the Lambda runtime. It does not
// return.
func Serve(c *chain.Engine, opts ...Option) {
	engine = NewEngine(c, opts...)
	lambda.Start(engine)
}

// Close stops the running engine; further invocations answer 503.
func Close() {
	if engine != nil {
		engine.Stop()
	}
}
