// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     server
// Description: gRPC service, HTTP gateway and WebSocket endpoint
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/msto63/pascal/internal/pascal/service"
	"github.com/msto63/pascal/pkg/core/config"
	coreGrpc "github.com/msto63/pascal/pkg/core/grpc"
	corehealth "github.com/msto63/pascal/pkg/core/health"
	"github.com/msto63/pascal/pkg/core/logging"
	"github.com/msto63/pascal/pkg/core/version"
)

// Config holds server configuration
type Config struct {
	Host             string
	GRPCPort         int
	HTTPPort         int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	EnableReflection bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		GRPCPort:        9310,
		HTTPPort:        8310,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ConfigFrom extracts the server settings of an application configuration
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Host:             cfg.Server.Host,
		GRPCPort:         cfg.Server.GRPCPort,
		HTTPPort:         cfg.Server.HTTPPort,
		ReadTimeout:      cfg.Server.ReadTimeout.Duration,
		WriteTimeout:     cfg.Server.WriteTimeout.Duration,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout.Duration,
		EnableReflection: cfg.Server.EnableReflection,
	}
}

// Server runs the gRPC service and the HTTP gateway on top of one
// evaluation service
type Server struct {
	svc        *service.Service
	grpc       *coreGrpc.Server
	grpcHealth *health.Server
	httpServer *http.Server
	health     *corehealth.Registry
	logger     *logging.Logger
	config     Config
}

// New creates a new server. The service is owned by the caller.
func New(cfg Config, svc *service.Service, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.New("pascal-server")
	}

	grpcCfg := coreGrpc.DefaultServerConfig()
	grpcCfg.Host = cfg.Host
	grpcCfg.Port = cfg.GRPCPort
	grpcCfg.EnableReflection = cfg.EnableReflection

	grpcServer := coreGrpc.NewServer(grpcCfg, logger.Named("grpc"))
	RegisterEvaluatorServer(grpcServer.GRPCServer(), NewEvaluatorServer(svc))

	grpcHealth := health.NewServer()
	grpcHealth.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer.GRPCServer(), grpcHealth)

	registry := corehealth.NewRegistry("pascal", version.Server)
	registry.Register(corehealth.PingCheck("evaluator", svc.Ping))
	registry.Register(corehealth.PingCheck("store", svc.PingStore))

	mux := http.NewServeMux()
	mux.Handle("/api/v1/evaluate/ws", NewWebSocketHandler(svc, logger.Named("websocket")))
	mux.Handle("/", NewHandler(svc, registry, logger.Named("http")))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort),
		Handler:      loggingMiddleware(logger.Named("http"), mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		svc:        svc,
		grpc:       grpcServer,
		grpcHealth: grpcHealth,
		httpServer: httpServer,
		health:     registry,
		logger:     logger,
		config:     cfg,
	}
}

// Start starts both listeners asynchronously. Listen errors are returned
// synchronously.
func (s *Server) Start() error {
	if err := s.grpc.StartAsync(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.grpc.Stop()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("Starting Pascal server",
		"grpc", s.grpc.Address(),
		"http", listener.Addr().String(),
	)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err.Error())
		}
	}()

	return nil
}

// Run starts the server and blocks until ctx is done, then shuts down
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.Stop(shutdownCtx)
}

// Stop gracefully stops both servers
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Pascal server")

	s.grpcHealth.Shutdown()
	s.grpc.StopWithTimeout(ctx)

	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler including the request log
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// GRPC returns the gRPC server
func (s *Server) GRPC() *coreGrpc.Server {
	return s.grpc
}

// HealthRegistry returns the health check registry
func (s *Server) HealthRegistry() *corehealth.Registry {
	return s.health
}
