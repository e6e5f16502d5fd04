package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChristinaDay/updrift-sub001/internal/api"
	"github.com/ChristinaDay/updrift-sub001/internal/config"
	"github.com/ChristinaDay/updrift-sub001/internal/grpcserver"
	"github.com/ChristinaDay/updrift-sub001/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, gRPC health service and maintenance cron",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// ── Scheduler ────────────────────────────────────────────────────────────
	var cleaner scheduler.Cleaner
	var snapshots api.SnapshotStore
	if a.store != nil {
		cleaner = a.store
		snapshots = a.store
	}
	sched := scheduler.New(a.quota, cleaner, cfg.CleanupIntervalHours)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	router := api.NewRouter(api.Deps{
		Search:    a.search,
		Snapshots: snapshots,
		Locations: a.locations,
		Quota:     a.quota,
		Usage:     a.usage,
		Errors:    a.errs,
		Logger:    a.logger,
		Version:   version,
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	httpLis, grpcLis, err := openListeners(cfg.Port, cfg.GRPCPort)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		log.Printf("[updrift] v%s listening on :%s (%d provider(s))", version, cfg.Port, a.registry.Len())
		if err := srv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	// ── gRPC health ──────────────────────────────────────────────────────────
	if grpcLis != nil {
		gs := grpcserver.NewServer(a.health)
		go func() {
			log.Printf("[updrift] gRPC health listening on :%s", cfg.GRPCPort)
			if err := gs.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
		defer gs.GracefulStop()
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		log.Printf("[updrift] Server error: %v", serveErr)
	}

	log.Println("[updrift] Shutting down…")
	a.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[updrift] Shutdown error: %v", err)
	}
	log.Println("[updrift] Stopped.")
	return serveErr
}

// openListeners binds the HTTP port and, when set, the gRPC port. Nothing is
// left bound if either fails.
func openListeners(httpPort, grpcPort string) (httpLis, grpcLis net.Listener, err error) {
	httpLis, err = net.Listen("tcp", ":"+httpPort)
	if err != nil {
		return nil, nil, fmt.Errorf("http listen: %w", err)
	}
	if grpcPort == "" {
		return httpLis, nil, nil
	}
	grpcLis, err = net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		httpLis.Close()
		return nil, nil, fmt.Errorf("grpc listen: %w", err)
	}
	return httpLis, grpcLis, nil
}
