// Package health serves the standard gRPC health protocol, fed by periodic
// dependency checks.
package health

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Check func(ctx context.Context) error

type Server struct {
	log      *slog.Logger
	hs       *health.Server
	checks   map[string]Check
	interval time.Duration
}

func NewServer(log *slog.Logger, interval time.Duration, checks map[string]Check) *Server {
	return &Server{
		log:      log,
		hs:       health.NewServer(),
		checks:   checks,
		interval: interval,
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, s.hs)

	go s.checkLoop(ctx)
	go func() {
		<-ctx.Done()
		s.hs.Shutdown()
		gs.GracefulStop()
	}()

	s.log.Info("grpc health listening", "addr", addr)
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) checkLoop(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.RunChecks(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// RunChecks runs every check once. Each check reports under its own service name;
// the empty service name is SERVING only when all checks pass.
func (s *Server) RunChecks(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.checks[name](cctx)
		cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			s.log.Warn("health check failed", "check", name, "err", err)
		}
		s.hs.SetServingStatus(name, status)
	}
	s.hs.SetServingStatus("", overall)
}

// Status reports the last checked status of service.
func (s *Server) Status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
