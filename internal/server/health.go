package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the grpc.health.v1 service name reported alongside
// the overall ("") status.
const HealthServiceName = "grinmorio.rolling"

// HealthServer serves the standard gRPC health protocol.
type HealthServer struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server
}

// NewHealthServer creates a HealthServer that starts NOT_SERVING.
//
// Precondition: logger must be non-nil.
func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)

	h := &HealthServer{addr: addr, logger: logger, grpc: gs, health: hs}
	h.SetServing(false)
	return h
}

// SetServing flips both the overall and the named service status.
func (h *HealthServer) SetServing(ok bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthServiceName, status)
}

// Serve serves health checks on lis until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	if err := h.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serving grpc health: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until Stop.
func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	return h.Serve(lis)
}

// Stop marks every service NOT_SERVING and stops the gRPC server gracefully.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}

// HealthCheck reports whether a dependency is healthy.
type HealthCheck func(ctx context.Context) error

// HealthMonitor polls a HealthCheck and mirrors the result into a
// HealthServer.
type HealthMonitor struct {
	server   *HealthServer
	check    HealthCheck
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHealthMonitor creates a monitor. A nil check always reports healthy.
//
// Precondition: server and logger must be non-nil; interval must be positive.
func NewHealthMonitor(server *HealthServer, check HealthCheck, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		server:   server,
		check:    check,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start checks immediately and then every interval until Stop. Each check
// gets at most one interval to answer.
func (m *HealthMonitor) Start() error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	healthy := m.poll(true)
	for {
		select {
		case <-m.stop:
			return nil
		case <-ticker.C:
			healthy = m.poll(healthy)
		}
	}
}

// Stop ends polling. It is safe to call more than once.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *HealthMonitor) poll(wasHealthy bool) bool {
	var err error
	if m.check != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		err = m.check(ctx)
		cancel()
	}
	ok := err == nil
	if ok != wasHealthy {
		if ok {
			m.logger.Info("storage healthy again")
		} else {
			m.logger.Warn("storage health check failed", zap.Error(err))
		}
	}
	m.server.SetServing(ok)
	return ok
}
