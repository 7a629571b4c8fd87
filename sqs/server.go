package sqs

import (
	"github.com/aura-studio/bragg/chain"
	"github.com/aws/aws-lambda-go/lambda"
)

var engine *Engine

// Serve runs the chain as the handler for AWS Lambda SQS events.
func Serve(c *chain.Engine, opts ...Option) {
	engine = NewEngine(c, opts...)
	lambda.Start(engine.Invoke)
}

func Close() {
	if engine != nil {
		engine.Stop()
	}
}
