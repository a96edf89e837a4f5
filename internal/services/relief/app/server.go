package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reliefnet/reliefnet/internal/platform/timeouts"
	"github.com/reliefnet/reliefnet/internal/services/relief/api/httpapi"
)

const defaultHTTPPort = 8095

// ServerConfig controls the relief API process.
type ServerConfig struct {
	Port      int
	Ledger    LedgerConfig
	Oracle    OracleConfig
	Reconcile ReconcileConfig
	// EmbedReconciler runs the reconciliation loop next to the API.
	EmbedReconciler bool
	JWTSecret       string
	JWTIssuer       string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// RunServer serves the relief HTTP API until ctx ends.
func RunServer(ctx context.Context, cfg ServerConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultHTTPPort
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}

	verifier, err := httpapi.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer, nil)
	if err != nil {
		return fmt.Errorf("init token verifier: %w", err)
	}
	c, err := openComponents(cfg.Ledger, cfg.Oracle, cfg.Reconcile)
	if err != nil {
		return err
	}
	defer c.close()

	handler, err := httpapi.NewHandler(httpapi.Services{
		Campaigns: c.registry,
		Parties:   c.approvals,
		Donations: c.intake,
		Packages:  c.issuer,
		Auditor:   c.engine,
	}, verifier, log.Printf)
	if err != nil {
		return fmt.Errorf("init relief handler: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on relief port %d: %w", cfg.Port, err)
	}
	httpServer := &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("relief server listening at %v", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	if cfg.EmbedReconciler {
		group.Go(func() error {
			return c.engine.Run(groupCtx)
		})
	}
	return group.Wait()
}
