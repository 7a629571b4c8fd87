package server

import (
	"fmt"

	"github.com/aura-studio/bragg/apigw"
	"github.com/aura-studio/bragg/chain"
	"github.com/aura-studio/bragg/dynamic"
	"github.com/aura-studio/bragg/http"
	"github.com/aura-studio/bragg/invoke"
	"github.com/aura-studio/bragg/sqs"
)

// NewEngine builds the chain described by options: the registered handlers
// followed by the dynamic package handler when one is configured.
func NewEngine(options *Options) *chain.Engine {
	e := chain.NewEngine(options.Chain...)
	e.Use(options.Handlers...)
	if options.Dynamic != nil {
		e.Use(dynamic.NewDynamic(options.Dynamic...).Handler())
	}
	return e
}

// Serve builds the chain and hands it to the selected adapter. The Lambda
// adapters never return; the http adapter returns when the server is closed.
func Serve(opts ...Option) error {
	options := NewOptions(opts...)

	switch options.Lambda {
	case LambdaInvoke, LambdaAPIGW, LambdaSQS, LambdaHTTP, "":
	default:
		return fmt.Errorf("server: unknown lambda %q", options.Lambda)
	}

	e := NewEngine(options)
	switch options.Lambda {
	case LambdaInvoke:
		invoke.Serve(e, options.Invoke...)
	case LambdaAPIGW:
		apigw.Serve(e, options.APIGW...)
	case LambdaSQS:
		sqs.Serve(e, options.Sqs...)
	default:
		return http.Serve(e, options.Http...)
	}
	return nil
}

func Close() error {
	if err := http.Close(); err != nil {
		return err
	}
	invoke.Close()
	apigw.Close()
	sqs.Close()
	return nil
}
