package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/itchan-dev/itboard/backend/internal/setup"
	"github.com/itchan-dev/itboard/shared/config"
	"github.com/itchan-dev/itboard/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := setup.SetupWorker(ctx, cfg)
	if err != nil {
		logger.Log.Error("failed to initialize worker", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	// returns after the jobs in hand are completed
	if err := deps.Pool.Run(ctx); err != nil {
		logger.Log.Error("worker pool failed", "error", err)
		os.Exit(1)
	}
}
