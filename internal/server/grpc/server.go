// Package grpc exposes the standard grpc.health.v1 service so orchestrators
// can probe the server without going through the JSON API.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported next to the overall ("") status.
const ServiceName = "taskhub"

const defaultCheckInterval = 10 * time.Second

type HealthServer struct {
	address  string
	logger   logging.Logger
	check    func(context.Context) error
	interval time.Duration
	health   *health.Server
}

// NewHealthServer reports NOT_SERVING until check first succeeds, then
// follows its result every interval.
func NewHealthServer(a string, l logging.Logger, check func(context.Context) error) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		address:  a,
		logger:   l.With("module", "grpc_health"),
		check:    check,
		interval: defaultCheckInterval,
		health:   hs,
	}
}

func (s *HealthServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *HealthServer) probe(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		if err := s.check(checkCtx); err != nil {
			s.logger.Warn(ctx, "health check failed", "error", err.Error())
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
