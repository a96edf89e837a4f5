package app

import (
	"context"
	"fmt"
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultReconcilerPort = 8096
	reconcilerHealthName  = "relief.reconciler"
)

// ReconcilerConfig controls the standalone reconciliation worker.
type ReconcilerConfig struct {
	// HealthPort serves the gRPC health protocol.
	HealthPort int
	Ledger     LedgerConfig
	Oracle     OracleConfig
	Reconcile  ReconcileConfig
}

// RunReconciler runs reconciliation passes until ctx ends.
func RunReconciler(ctx context.Context, cfg ReconcilerConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultReconcilerPort
	}

	c, err := openComponents(cfg.Ledger, cfg.Oracle, cfg.Reconcile)
	if err != nil {
		return err
	}
	defer c.close()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("listen on reconciler port %d: %w", cfg.HealthPort, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(reconcilerHealthName, grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("reconciler health server listening at %v", listener.Addr())
	return c.engine.Run(ctx)
}
