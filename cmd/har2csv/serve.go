package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/har2csv/internal/api"
	"github.com/MikeSquared-Agency/har2csv/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP upload service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if port != 0 {
		cfg.Port = port
	}
	slog.Info("har2csv starting", "port", cfg.Port, "marker", cfg.Marker)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	runner, cleanup := newRunner(ctx, cfg.Marker)
	defer cleanup()

	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		Marker:         cfg.Marker,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Gatherer:       reg,
	}, runner, slog.Default())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("har2csv stopped")
	return nil
}
