// Command train trains every configured model on the newest sales snapshot,
// logs each run to the tracking store and registers the best one.
//
//	go run ./cmd/train -config configs/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/YuminosukeSato/salesforecast/config"
	"github.com/YuminosukeSato/salesforecast/metrics"
	"github.com/YuminosukeSato/salesforecast/pipeline"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/tracking"
)

func main() {
	configFile := flag.String("config", "", "Path to the YAML configuration file")
	dataDir := flag.String("data", "", "Snapshot directory (overrides the config)")
	pattern := flag.String("pattern", "", "Snapshot pattern with one '*' (overrides the config)")
	flag.Parse()

	if err := run(*configFile, *dataDir, *pattern); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, dataDir, pattern string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if pattern != "" {
		cfg.Data.Pattern = pattern
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetupLogger(cfg.LogLevel, os.Stderr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := tracking.Open(ctx, cfg.Tracking.DB, cfg.Tracking.ArtifactRoot)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := pipeline.Run(ctx, cfg.PipelineOptions(), store)
	if err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func printSummary(res *pipeline.Result) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("\nSnapshot: %s\n\n", res.Snapshot)
	fmt.Printf("%-10s %10s %10s %10s %10s %10s\n", "model", "rmse", "mae", "mse", "r2", "combined")
	for _, r := range res.All {
		line := fmt.Sprintf("%-10s %10.4f %10.4f %10.4f %10.4f %10.4f",
			r.ModelName, r.Record.RMSE, r.Record.MAE, r.Record.MSE, r.Record.R2, r.Score())
		if r.RunID == res.Best.RunID {
			line = green(line)
		}
		fmt.Println(line)
	}

	fmt.Printf("\n%s %s (%s %.4f)\n", bold("Best model:"), green(res.Best.ModelName), metrics.KeyCombined, res.Best.Score())
	fmt.Printf("%s %s v%d\n", bold("Registered:"), res.Registered.Name, res.Registered.Version)
	if res.ResultsFile != "" {
		fmt.Printf("%s %s\n", bold("Results:"), cyan(res.ResultsFile))
	}
}
