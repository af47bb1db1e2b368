package utils

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server with signal driven graceful shutdown.
type Server struct {
	*http.Server

	signalChan chan os.Signal
	onShutdown []func(ctx context.Context)
}

// NewServer creates a Server with timeouts and handler. Hooks run after the
// HTTP server stopped accepting requests, sharing the shutdown deadline.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration, hooks ...func(ctx context.Context)) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		signalChan: make(chan os.Signal, 1),
		onShutdown: hooks,
	}
}

// ListenAndServe serves until SIGINT or SIGTERM, then drains connections and runs the hooks.
func (srv *Server) ListenAndServe() error {
	signal.Notify(srv.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(srv.signalChan)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-srv.signalChan:
		Sugar.Infof("received %s, graceful shutting down HTTP server", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DEFAULT_SHUTDOWN_TIMEOUT)
	defer cancel()
	err := srv.Shutdown(ctx)
	if err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	for _, hook := range srv.onShutdown {
		hook(ctx)
	}
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}

// GraceServer starts an HTTP server with graceful capabilities.
func GraceServer(addr string, handler http.Handler, hooks ...func(ctx context.Context)) error {
	return NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT, hooks...).ListenAndServe()
}
