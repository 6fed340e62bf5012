// Command serve loads the best registered model and serves predictions over
// HTTP until interrupted.
//
//	go run ./cmd/serve -config configs/config.yaml -addr :8000
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/YuminosukeSato/salesforecast/config"
	"github.com/YuminosukeSato/salesforecast/core/model"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/serve"
	"github.com/YuminosukeSato/salesforecast/tracking"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "Listen address (overrides the config)")
	flag.Parse()

	if err := run(*configFile, *addr); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, addr string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := log.SetupLogger(cfg.LogLevel, os.Stderr); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := tracking.Open(ctx, cfg.Tracking.DB, cfg.Tracking.ArtifactRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := serve.New(func(ctx context.Context) (model.Regressor, tracking.ModelInfo, error) {
		return tracking.LoadBest(ctx, store, cfg.Tracking.Experiment, cfg.Tracking.RegisteredName)
	})
	info, err := srv.Reload(ctx)
	if err != nil {
		return err
	}
	color.Green("Model loaded: %s v%s (run %s)", info.Name, info.Version, info.RunID)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
