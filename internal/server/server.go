// Package server runs the diary proxy: the HTTP API plus a gRPC health
// service on a second listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/ringbell/internal/config"
)

// HealthService is the gRPC health service name reported for the proxy.
const HealthService = "ringbell.diary"

const shutdownTimeout = 5 * time.Second

// Server owns the HTTP and gRPC listeners.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	logger  *zap.Logger
	health  *health.Server
}

func New(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, handler: handler, logger: logger.Named("server"), health: health.NewServer()}
}

// Run listens on the configured addresses and serves until ctx is cancelled.
// An empty gRPC address disables the health listener.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.cfg.Addr, err)
	}

	var grpcLn net.Listener
	if addr := strings.TrimSpace(s.cfg.GRPCAddr); addr != "" {
		grpcLn, err = net.Listen("tcp", addr)
		if err != nil {
			_ = httpLn.Close()
			return fmt.Errorf("listen grpc %s: %w", addr, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs on existing listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	var grpcSrv *grpc.Server
	if grpcLn != nil {
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, s.health)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)

	errs := make(chan error, 2)
	running := 1
	go func() {
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("serve http: %w", err)
			return
		}
		errs <- nil
	}()
	if grpcSrv != nil {
		running++
		go func() {
			if err := grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errs <- fmt.Errorf("serve grpc: %w", err)
				return
			}
			errs <- nil
		}()
	}

	fields := []zap.Field{zap.String("http", httpLn.Addr().String())}
	if grpcLn != nil {
		fields = append(fields, zap.String("grpc", grpcLn.Addr().String()))
	}
	s.logger.Info("diary proxy listening", fields...)

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-errs:
		running--
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
	}

	for ; running > 0; running-- {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.logger.Info("diary proxy stopped")
	return firstErr
}
