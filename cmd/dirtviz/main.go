package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/hare-lab/fieldclient/internal/config"
	"github.com/hare-lab/fieldclient/internal/dirtviz"
	"github.com/hare-lab/fieldclient/internal/display"
	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/menu"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting sensor data viewer",
		slog.String("env", cfg.Env),
		slog.String("base_url", cfg.DirtViz.BaseURL),
	)

	loc, err := display.LoadLocation(cfg.DirtViz.Timezone)
	if err != nil {
		log.Error("failed to load timezone", sl.Err(err))
		os.Exit(1)
	}

	client := dirtviz.NewClient(log, cfg.DirtViz)
	defer client.Close()

	m := menu.New(log, client, display.NewFormatter(loc), loc, os.Stdin, os.Stdout)
	if err := m.Run(context.Background()); err != nil {
		log.Error("menu stopped", sl.Err(err))
		os.Exit(1)
	}
}
