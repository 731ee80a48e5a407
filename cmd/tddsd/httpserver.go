package main

import (
	"context"
	"net/http"
	"time"
)

// httpServer is a minimal context-driven wrapper around net/http.Server,
// matching the shutdown-on-ctx-cancel pattern the rest of tddsd's
// background loops use (transport.UDP.Start, discovery.Engine.Start).
type httpServer struct {
	addr    string
	handler http.Handler
}

func (s *httpServer) run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
