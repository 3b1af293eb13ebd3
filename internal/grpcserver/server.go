// Package grpcserver exposes the standard gRPC health service for the engine.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"tictactoe/internal/logger"
)

// EngineService is the health service name reported for the session engine.
const EngineService = "tictactoe.v1.GameEngine"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewWithAddr listens on addr and registers the health service as SERVING.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(EngineService, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
	}, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetServing flips the engine service status.
func (s *Server) SetServing(ok bool) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !ok {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(EngineService, status)
}

// WatchStore marks the engine NOT_SERVING while store pings fail.
func (s *Server) WatchStore(ctx context.Context, store Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := store.Ping(pingCtx)
			cancel()

			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				if ok {
					logger.Info("user store reachable again")
				} else {
					logger.Warn("user store unreachable", "error", err)
				}
			}
		}
	}
}

// Serve runs until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	logger.Info("grpc server listening", "addr", s.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}
