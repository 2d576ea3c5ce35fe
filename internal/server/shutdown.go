package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"olist-dashboard/internal/config"
)

// ShutdownHook releases one resource during graceful shutdown. Hooks
// run in reverse registration order, after the HTTP server has stopped
// accepting connections.
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

type GracefulServer struct {
	server *http.Server
	logger *slog.Logger
	cfg    *config.Config

	mu    sync.Mutex
	hooks []ShutdownHook
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, cfg *config.Config) *GracefulServer {
	return &GracefulServer{
		server: server,
		logger: logger,
		cfg:    cfg,
	}
}

func (gs *GracefulServer) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, ShutdownHook{Name: name, Fn: fn})
}

// ListenAndServe runs the server until it fails or a SIGINT/SIGTERM
// arrives, then drains it within the configured shutdown timeout.
func (gs *GracefulServer) ListenAndServe() error {
	errs := make(chan error, 1)

	go func() {
		gs.logger.Info("starting server", "addr", gs.server.Addr)
		errs <- gs.server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		gs.logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), gs.cfg.Server.ShutdownTimeout)
	defer cancel()

	return gs.drain(ctx)
}

// drain stops the listener first so no new work arrives, then runs the
// hooks newest-first. The first error is returned but every hook still
// gets its turn.
func (gs *GracefulServer) drain(ctx context.Context) error {
	gs.logger.Info("draining server", "timeout", gs.cfg.Server.ShutdownTimeout)

	var firstErr error
	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("server drain failed", "error", err)
		firstErr = fmt.Errorf("server drain: %w", err)
	}

	gs.mu.Lock()
	hooks := make([]ShutdownHook, len(gs.hooks))
	copy(hooks, gs.hooks)
	gs.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if err := hook.Fn(ctx); err != nil {
			gs.logger.Error("shutdown hook failed", "hook", hook.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown hook %s: %w", hook.Name, err)
			}
			continue
		}
		gs.logger.Debug("shutdown hook completed", "hook", hook.Name)
	}

	if firstErr == nil {
		gs.logger.Info("shutdown complete")
	}
	return firstErr
}
