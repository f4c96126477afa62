package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start binds the HTTP listener and serves in the background. The returned
// channel is closed on SIGINT, SIGTERM or SIGHUP, or when the server stops
// on its own.
func (a *App) Start() <-chan struct{} {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		slog.Error("failed to bind http listener", "address", a.httpServer.Addr, "error", err)
		os.Exit(1)
	}

	slog.Info("http server listening",
		"address", l.Addr().String(),
		"repository", a.config.GetString("repository.driver"),
		"messaging", a.config.GetString("messaging.driver"),
	)

	serveErr := a.Serve(l)
	terminateChan := make(chan struct{})

	go func() {
		defer close(terminateChan)

		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigint)

		select {
		case sig := <-sigint:
			slog.Info("shutdown requested", "signal", sig.String())
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server stopped", "error", err)
			}
		}

		if a.cancel != nil {
			a.cancel()
		}
	}()

	return terminateChan
}

// Serve runs the HTTP server on l until it is shut down.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop drains in-flight requests and background publishes, then releases
// resources in reverse order of acquisition.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "HTTP Server", "error", err)
	}

	if err := a.goroutine.Wait(ctx); err != nil {
		slog.ErrorContext(ctx, "background tasks did not finish", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
