package mockserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Config captures the settings of the fake extraction back end.
type Config struct {
	Addr string
	// Scenario is the default script; requests may override it.
	Scenario Scenario
	// MaxUploadMB is the upload limit enforced like the real service.
	MaxUploadMB int
	// StepDelay paces the "slow" scenario.
	StepDelay time.Duration
	Logger    *slog.Logger
	// OnListen receives the bound address once the listener is open.
	OnListen func(addr string)
}

// Serve runs the mock back end until ctx ends.
func Serve(ctx context.Context, cfg Config) error {
	if ctx == nil {
		return errors.New("mockserver: context is nil")
	}
	if cfg.Addr == "" {
		return errors.New("mockserver: addr is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	if cfg.OnListen != nil {
		cfg.OnListen(listener.Addr().String())
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			return nil
		}
		return err
	}
}
