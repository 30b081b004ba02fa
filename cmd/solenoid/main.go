package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/docopt/docopt-go"

	"github.com/hare-lab/fieldclient/internal/config"
	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/monitor"
	"github.com/hare-lab/fieldclient/internal/solenoid"
)

const version = "0.1"

const usage = `Irrigation solenoid controller client.

Usage:
  solenoid [options] <command> [<args>...]
  solenoid -h | --help
  solenoid --version

Options:
  -h --help          Show this screen.
  --version          Show version.
  --config=<path>    Path to a YAML config file.
  --host=<addr>      Controller address, overrides the configured host.
`

func main() {
	prog := filepath.Base(os.Args[0])

	parser := &docopt.Parser{
		OptionsFirst: true,
		HelpHandler: func(err error, text string) {
			if err != nil {
				fmt.Println(solenoid.ParseErrorMessage(os.Args[1:], err, "--config", "--host"))
				fmt.Print(solenoid.Usage(prog))
				os.Exit(1)
			}
			fmt.Println(text)
			os.Exit(0)
		},
	}

	opts, err := parser.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		os.Exit(1)
	}

	configPath, _ := opts.String("--config")
	cfg := config.MustLoad(configPath)
	if host, _ := opts.String("--host"); host != "" {
		cfg.Solenoid.Host = host
	}

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	command, _ := opts.String("<command>")
	args, _ := opts["<args>"].([]string)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := solenoid.NewClient(log, cfg.Solenoid.BaseURL(), cfg.Solenoid.Timeout)
	defer client.Close()

	mon := monitor.New(log, client, os.Stdout, cfg.Solenoid.MonitorInterval, cfg.Solenoid.SummaryEvery)
	commander := solenoid.NewCommander(log, client, mon, os.Stdout, prog)

	if err := commander.Run(ctx, command, args); err != nil {
		var usageErr *solenoid.UsageError
		if errors.As(err, &usageErr) {
			fmt.Println(usageErr.Message)
			if usageErr.ShowUsage {
				fmt.Print(solenoid.Usage(prog))
			}
		} else {
			fmt.Printf("Unexpected error: %v\n", err)
		}
		os.Exit(1)
	}

	if !mon.Active() {
		return
	}

	fmt.Println("\nAuto monitoring running. Press Ctrl+C to stop.")
	select {
	case <-ctx.Done():
		fmt.Println("\nStopping auto monitoring...")
		mon.Stop()
		<-mon.Done()
	case <-mon.Done():
	}
}
