package httpserver

import (
	"context"
	"time"
)

const (
	// DefaultShutdownTimeout applies when the configured timeout is zero.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout guards against slow-header clients when unset.
	DefaultReadHeaderTimeout = 5 * time.Second
)

// ShutdownTimeout controls how long to wait for in-flight requests.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.shutdownTimeout
}

// GracefulShutdown stops the server within its shutdown timeout. The parent
// context is usually already cancelled, so the deadline is detached from it.
func (s *Server) GracefulShutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
