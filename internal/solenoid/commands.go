package solenoid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/monitor"
)

// UsageError reports a bad command line. The process exits with code 1.
type UsageError struct {
	Message   string
	ShowUsage bool
}

func (e *UsageError) Error() string {
	return e.Message
}

type command struct {
	minArgs int
	maxArgs int
	usage   func(prog string, got int) string
	run     func(ctx context.Context, c *Commander, args []string) (*Response, error)
}

// Commander dispatches one CLI command to the controller.
type Commander struct {
	log     *slog.Logger
	client  *Client
	monitor *monitor.Monitor
	out     io.Writer
	prog    string
}

func NewCommander(log *slog.Logger, client *Client, mon *monitor.Monitor, out io.Writer, prog string) *Commander {
	return &Commander{
		log:     log,
		client:  client,
		monitor: mon,
		out:     out,
		prog:    prog,
	}
}

func tooMany(name string) func(string, int) string {
	return func(prog string, _ int) string {
		return fmt.Sprintf("Error: Too many arguments.\nFormat: %s %s", prog, name)
	}
}

func thresholdUsage(name string) func(string, int) string {
	return func(prog string, _ int) string {
		return fmt.Sprintf("Error: Usage: %s %s <min> <max>\nExample: %s %s 30 60", prog, name, prog, name)
	}
}

var commands = map[string]command{
	"open": {
		usage: tooMany("open"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			resp, err := c.client.OpenValve(ctx)
			if err == nil {
				fmt.Fprintln(c.out, "Triggering solenoid")
			}
			return resp, err
		},
	},
	"close": {
		usage: tooMany("close"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			resp, err := c.client.CloseValve(ctx)
			if err == nil {
				fmt.Fprintln(c.out, "Triggering solenoid")
			}
			return resp, err
		},
	},
	"timed": {
		minArgs: 1,
		maxArgs: 1,
		usage: func(prog string, got int) string {
			if got == 0 {
				return fmt.Sprintf("Error: Time duration not set.\nFormat: %s timed [seconds].", prog)
			}
			return fmt.Sprintf("Error: Too many arguments.\nFormat: %s timed [seconds].", prog)
		},
		run: func(ctx context.Context, c *Commander, args []string) (*Response, error) {
			resp, err := c.client.Timed(ctx, args[0])
			if err == nil {
				fmt.Fprintf(c.out, "Turning on solenoid for %s seconds.\n", args[0])
			}
			return resp, err
		},
	},
	"state": {
		usage: tooMany("state"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			resp, err := c.client.State(ctx)
			if err == nil && resp.OK() {
				fmt.Fprintf(c.out, "Current state: %s\n", resp.Body)
			}
			return resp, err
		},
	},
	"set_thresholds": {
		minArgs: 2,
		maxArgs: 2,
		usage:   thresholdUsage("set_thresholds"),
		run: func(ctx context.Context, c *Commander, args []string) (*Response, error) {
			resp, err := c.client.SetThresholds(ctx, args[0], args[1])
			if err == nil {
				fmt.Fprintf(c.out, "Set thresholds: Min=%s%%, Max=%s%%\n", args[0], args[1])
			}
			return resp, err
		},
	},
	"auto_irrigation": {
		minArgs: 2,
		maxArgs: 2,
		usage:   thresholdUsage("auto_irrigation"),
		run: func(ctx context.Context, c *Commander, args []string) (*Response, error) {
			resp, err := c.client.EnableAutoIrrigation(ctx, args[0], args[1])
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(c.out, "Auto irrigation enabled: Moisture < %s%% → OPEN, > %s%% → CLOSE\n", args[0], args[1])
			c.report(resp)
			c.monitor.Start(ctx)
			return nil, nil
		},
	},
	"auto_on": {
		usage: tooMany("auto_on"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			resp, err := c.client.SetAuto(ctx, true)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(c.out, "Automatic irrigation enabled")
			c.report(resp)

			status, err := c.client.Status(ctx)
			if err != nil {
				c.log.Debug("initial status fetch failed", sl.Err(err))
			}
			monitor.WriteSummary(c.out, status, c.monitor.Active())

			c.monitor.Start(ctx)
			return nil, nil
		},
	},
	"auto_off": {
		usage: tooMany("auto_off"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			resp, err := c.client.SetAuto(ctx, false)
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(c.out, "Automatic irrigation disabled")
			c.report(resp)
			c.monitor.Stop()
			return nil, nil
		},
	},
	"status": {
		usage: tooMany("status"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			status, err := c.client.Status(ctx)
			if err != nil {
				c.log.Debug("status fetch failed", sl.Err(err))
				fmt.Fprintln(c.out, "Could not fetch system status")
				return nil, nil
			}

			auto, active := "Disabled", "No"
			if status.AutoEnabled() {
				auto = "Enabled"
			}
			if c.monitor.Active() {
				active = "Yes"
			}

			fmt.Fprintln(c.out, "System Status:")
			fmt.Fprintf(c.out, "  Solenoid State: %s\n", status.State())
			fmt.Fprintf(c.out, "  Auto Irrigation: %s\n", auto)
			fmt.Fprintf(c.out, "  Irrigation Thresholds: %s%% - %s%%\n", status.MinText(), status.MaxText())
			fmt.Fprintf(c.out, "  Check Interval: %s seconds\n", status.IntervalText())
			fmt.Fprintf(c.out, "  Current Moisture: %s%%\n", status.Moisture())
			fmt.Fprintf(c.out, "  Monitoring Active: %s\n", active)
			return nil, nil
		},
	},
	"moisture_check": {
		usage: tooMany("moisture_check"),
		run: func(ctx context.Context, c *Commander, _ []string) (*Response, error) {
			status, err := c.client.Status(ctx)
			if err != nil || !status.HasMoisture() {
				if err != nil {
					c.log.Debug("status fetch failed", sl.Err(err))
				}
				fmt.Fprintln(c.out, "Could not fetch moisture reading from controller")
				return nil, nil
			}
			fmt.Fprintf(c.out, "Current moisture from controller: %s%%\n", status.Moisture())
			monitor.WriteSummary(c.out, status, c.monitor.Active())
			return nil, nil
		},
	},
}

// Run executes name with its positional args. Argument-count mistakes and
// unknown commands return *UsageError before any request is made. Network
// failures are printed and swallowed.
func (c *Commander) Run(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return &UsageError{
			Message:   fmt.Sprintf("Error: Unknown command '%s'", name),
			ShowUsage: true,
		}
	}

	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return &UsageError{Message: cmd.usage(c.prog, len(args))}
	}

	resp, err := cmd.run(ctx, c, args)
	if err != nil {
		c.log.Error("controller request failed",
			slog.String("command", name),
			slog.String("controller", c.client.BaseURL()),
			sl.Err(err),
		)
		fmt.Fprintf(c.out, "Error: Could not connect to controller at %s\n", c.client.BaseURL())
		fmt.Fprintf(c.out, "Details: %v\n", err)
		return nil
	}

	c.report(resp)
	return nil
}

func (c *Commander) report(resp *Response) {
	if resp == nil {
		return
	}
	if !resp.OK() {
		fmt.Fprintf(c.out, "Error: Server responded with status %d\n", resp.StatusCode)
	}
	fmt.Fprintf(c.out, "Response: %s\n", resp.Body)
}

// Usage is the command reference printed for missing or unknown commands.
func Usage(prog string) string {
	lines := []string{
		"",
		"Available Commands:",
		"  Basic Control:",
		"    open                 - Open solenoid indefinitely",
		"    close                - Close solenoid",
		"    timed [seconds]      - Open for specified duration",
		"    state                - Check current solenoid state",
		"",
		"  Automatic Irrigation:",
		"    auto_irrigation <min> <max> - Enable auto mode with thresholds + start monitoring",
		"    auto_on              - Enable automatic irrigation + start monitoring",
		"    auto_off             - Disable automatic irrigation + stop monitoring",
		"    set_thresholds <min> <max> - Set thresholds only",
		"    status               - Show complete system status",
		"    moisture_check       - Check current moisture reading from controller",
		"",
		"Examples:",
		fmt.Sprintf("  %s timed 300              # Open for 5 minutes", prog),
		fmt.Sprintf("  %s auto_irrigation 50 75  # Auto mode: <50%% open, >75%% close", prog),
		fmt.Sprintf("  %s set_thresholds 25 55   # Update thresholds only", prog),
		fmt.Sprintf("  %s auto_on                # Enable auto irrigation", prog),
		fmt.Sprintf("  %s status                 # Show system status", prog),
		fmt.Sprintf("  %s moisture_check         # Check current moisture", prog),
	}
	return strings.Join(lines, "\n") + "\n"
}

// ParseErrorMessage explains a rejected command line. argv excludes the
// program name and valueFlags lists options that consume the next argument.
func ParseErrorMessage(argv []string, err error, valueFlags ...string) string {
	if !hasCommand(argv, valueFlags) {
		return "Error: No solenoid command received."
	}
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return "Error: Invalid arguments."
	}
	return "Error: " + strings.TrimSpace(err.Error())
}

func hasCommand(argv, valueFlags []string) bool {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--":
			return i+1 < len(argv)
		case strings.HasPrefix(arg, "-"):
			for _, f := range valueFlags {
				if arg == f {
					i++
					break
				}
			}
		default:
			return true
		}
	}
	return false
}
