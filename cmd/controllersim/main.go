package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hare-lab/fieldclient/internal/config"
	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/simulator"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	ctrl := simulator.NewController(log, cfg.Simulator.InitialMoisture, cfg.Simulator.CheckInterval)
	server := simulator.NewServer(log, cfg.Simulator.Address, ctrl)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(); err != nil {
		log.Error("failed to start simulator", sl.Err(err))
		os.Exit(1)
	}

	log.Info("controller simulator running",
		slog.String("address", cfg.Simulator.Address),
		slog.Duration("check_interval", cfg.Simulator.CheckInterval),
	)

	ctrl.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop simulator", sl.Err(err))
	}

	log.Info("controller simulator stopped")
}
