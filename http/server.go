package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aura-studio/bragg/chain"
)

var srv *http.Server

// Serve listens on the configured address until Close is called.
func Serve(c *chain.Engine, opts ...Option) error {
	e := NewEngine(c, opts...)
	srv = &http.Server{
		Addr:    e.Address,
		Handler: e,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}
