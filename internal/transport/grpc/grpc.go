// Package grpc implements the gRPC transport for echoline.
//
// The server exposes the standard grpc.health.v1.Health service, with one
// entry per pipeline stage so orchestrators can tell which provider
// credentials are configured, and server reflection for grpcurl.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service names reported by the health server.
const (
	ServiceSTT = "echoline.stt"
	ServiceLLM = "echoline.llm"
	ServiceTTS = "echoline.tts"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	stages map[string]bool

	mu     sync.Mutex
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port. stages maps each
// service name to whether that stage is usable.
func New(port int, stages map[string]bool) *Transport {
	return &Transport{port: port, stages: stages}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server on the configured port.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.Serve(ctx, lis)
}

// Serve runs the server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for name, ok := range t.stages {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if ok {
			status = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus(name, status)
	}

	t.mu.Lock()
	t.server, t.health = srv, hs
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return srv.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.mu.Lock()
	srv, hs := t.server, t.health
	t.mu.Unlock()
	if hs != nil {
		hs.Shutdown()
	}
	if srv != nil {
		srv.GracefulStop()
	}
	return nil
}
