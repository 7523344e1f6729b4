// Package grpcapi exposes the standard gRPC health service.  Each board is
// a named service whose status follows whether its ledger can be read.
package grpcapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
)

// DefaultProbeInterval is how often board health is re-checked.
const DefaultProbeInterval = 15 * time.Second

// ServiceName is the health service name for a board.
func ServiceName(board string) string { return "signout." + board }

type Server struct {
	grpcServer *gogrpc.Server
	health     *health.Server
	boards     service.Boards
	logger     *slog.Logger
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewServer(boards service.Boards, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	s := &Server{
		grpcServer: gogrpc.NewServer(),
		health:     health.NewServer(),
		boards:     boards,
		logger:     logger,
		interval:   interval,
	}
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	for _, name := range boards.Names() {
		s.health.SetServingStatus(ServiceName(name), grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return s
}

// Probe reads every board once and records the result.  The overall ("")
// service is SERVING only when every board is.
func (s *Server) Probe(ctx context.Context) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, name := range s.boards.Names() {
		st := grpc_health_v1.HealthCheckResponse_SERVING
		c, _ := s.boards.Get(name)
		if _, err := c.View(ctx); err != nil {
			s.logger.WarnContext(ctx, "board unhealthy", "board", name, "err", err)
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = st
		}
		s.health.SetServingStatus(ServiceName(name), st)
	}
	s.health.SetServingStatus("", overall)
}

// Serve starts the probe loop and serves on lis until Stop.  Services stay
// NOT_SERVING until the first Probe, so callers usually Probe first.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Probe(ctx)
			}
		}
	}()

	s.logger.Info("grpc health listening", "addr", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains the server.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	s.health.Shutdown()
	if cancel != nil {
		cancel()
		<-done
	}
	s.grpcServer.GracefulStop()
}
