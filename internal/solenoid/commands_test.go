package solenoid

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hare-lab/fieldclient/internal/model"
	"github.com/hare-lab/fieldclient/internal/monitor"
	"github.com/hare-lab/fieldclient/internal/simulator"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	ctrl    *simulator.Controller
	client  *Client
	monitor *monitor.Monitor
	cmd     *Commander
	out     *syncBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := simulator.NewController(log, 45, 10*time.Second)
	srv := httptest.NewServer(simulator.NewServer(log, "", ctrl).Handler())
	t.Cleanup(srv.Close)

	out := &syncBuffer{}
	client := NewClient(log, srv.URL, 5*time.Second)
	mon := monitor.New(log, client, out, time.Hour, 5)
	t.Cleanup(func() {
		if mon.Active() {
			mon.Stop()
		}
		<-mon.Done()
	})

	return &harness{
		ctrl:    ctrl,
		client:  client,
		monitor: mon,
		cmd:     NewCommander(log, client, mon, out, "solenoid"),
		out:     out,
	}
}

func TestArgumentCountErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"open", []string{"x"}, "Error: Too many arguments.\nFormat: solenoid open"},
		{"close", []string{"x"}, "Error: Too many arguments.\nFormat: solenoid close"},
		{"timed", nil, "Error: Time duration not set."},
		{"timed", []string{"1", "2"}, "Error: Too many arguments.\nFormat: solenoid timed [seconds]."},
		{"state", []string{"x"}, "Format: solenoid state"},
		{"set_thresholds", []string{"30"}, "Error: Usage: solenoid set_thresholds <min> <max>"},
		{"auto_irrigation", []string{"30", "60", "90"}, "Example: solenoid auto_irrigation 30 60"},
		{"status", []string{"x"}, "Format: solenoid status"},
	}

	for _, tt := range tests {
		err := h.cmd.Run(context.Background(), tt.name, tt.args)
		var usageErr *UsageError
		if !errors.As(err, &usageErr) {
			t.Errorf("%s %v: expected UsageError, got %v", tt.name, tt.args, err)
			continue
		}
		if !strings.Contains(usageErr.Message, tt.want) {
			t.Errorf("%s %v: message %q does not contain %q", tt.name, tt.args, usageErr.Message, tt.want)
		}
	}

	if h.ctrl.State() != model.SolenoidClosed {
		t.Error("no request should reach the controller on usage errors")
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)

	err := h.cmd.Run(context.Background(), "explode", nil)
	var usageErr *UsageError
	if !errors.As(err, &usageErr) || !usageErr.ShowUsage {
		t.Fatalf("expected UsageError with usage, got %v", err)
	}
	if usageErr.Message != "Error: Unknown command 'explode'" {
		t.Errorf("message = %q", usageErr.Message)
	}
}

func TestOpenAndState(t *testing.T) {
	h := newHarness(t)

	if err := h.cmd.Run(context.Background(), "open", nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	if h.ctrl.State() != model.SolenoidOpen {
		t.Fatal("valve should be open")
	}
	if err := h.cmd.Run(context.Background(), "state", nil); err != nil {
		t.Fatalf("state: %v", err)
	}

	text := h.out.String()
	if !strings.Contains(text, "Triggering solenoid") {
		t.Errorf("missing trigger line:\n%s", text)
	}
	if !strings.Contains(text, "Current state: open") {
		t.Errorf("missing state line:\n%s", text)
	}
}

func TestTimedNonNumericIsSentAsGiven(t *testing.T) {
	h := newHarness(t)

	if err := h.cmd.Run(context.Background(), "timed", []string{"soon"}); err != nil {
		t.Fatalf("timed: %v", err)
	}

	text := h.out.String()
	if !strings.Contains(text, "Error: Server responded with status 400") {
		t.Errorf("expected the controller's rejection to be reported:\n%s", text)
	}
}

func TestAutoIrrigationThenStatus(t *testing.T) {
	h := newHarness(t)

	if err := h.cmd.Run(context.Background(), "auto_irrigation", []string{"30", "60"}); err != nil {
		t.Fatalf("auto_irrigation: %v", err)
	}
	if !h.monitor.Active() {
		t.Fatal("auto_irrigation should start monitoring")
	}

	if err := h.cmd.Run(context.Background(), "status", nil); err != nil {
		t.Fatalf("status: %v", err)
	}

	text := h.out.String()
	for _, want := range []string{
		"Auto irrigation enabled: Moisture < 30% → OPEN, > 60% → CLOSE",
		"Irrigation Thresholds: 30% - 60%",
		"Auto Irrigation: Enabled",
		"Monitoring Active: Yes",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestSetThresholdsDoesNotMonitor(t *testing.T) {
	h := newHarness(t)

	if err := h.cmd.Run(context.Background(), "set_thresholds", []string{"25", "55"}); err != nil {
		t.Fatalf("set_thresholds: %v", err)
	}
	if h.monitor.Active() {
		t.Error("set_thresholds must not start monitoring")
	}
	st := h.ctrl.Status()
	if st.MinText() != "25" || st.MaxText() != "55" {
		t.Errorf("thresholds = %s-%s", st.MinText(), st.MaxText())
	}
	if st.AutoEnabled() {
		t.Error("set_thresholds must not enable auto irrigation")
	}
}

func TestAutoOnTwice(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 2; i++ {
		if err := h.cmd.Run(context.Background(), "auto_on", nil); err != nil {
			t.Fatalf("auto_on #%d: %v", i+1, err)
		}
	}

	text := h.out.String()
	if strings.Count(text, "Auto monitoring started") != 1 {
		t.Errorf("monitoring should start exactly once:\n%s", text)
	}
	if !strings.Contains(text, "Auto monitoring is already running") {
		t.Errorf("missing already running message:\n%s", text)
	}
	if !strings.Contains(text, "SYSTEM STATUS SUMMARY") {
		t.Errorf("auto_on should print an initial summary:\n%s", text)
	}

	if err := h.cmd.Run(context.Background(), "auto_off", nil); err != nil {
		t.Fatalf("auto_off: %v", err)
	}
	if h.monitor.Active() {
		t.Error("auto_off should stop monitoring")
	}
	if st := h.ctrl.Status(); st.AutoEnabled() {
		t.Error("controller auto flag should be off")
	}
}

func TestMoistureCheck(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetMoisture(37.5)

	if err := h.cmd.Run(context.Background(), "moisture_check", nil); err != nil {
		t.Fatalf("moisture_check: %v", err)
	}
	if !strings.Contains(h.out.String(), "Current moisture from controller: 37.5%") {
		t.Errorf("output:\n%s", h.out.String())
	}
}

func TestMoistureCheckMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solenoid_state": "closed"}`))
	}))
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	client := NewClient(log, srv.URL, time.Second)
	cmd := NewCommander(log, client, monitor.New(log, client, &out, time.Hour, 5), &out, "solenoid")

	if err := cmd.Run(context.Background(), "moisture_check", nil); err != nil {
		t.Fatalf("moisture_check: %v", err)
	}
	if !strings.Contains(out.String(), "Could not fetch moisture reading from controller") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestNetworkFailureIsReported(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	client := NewClient(log, "http://127.0.0.1:1", time.Second)
	mon := monitor.New(log, client, &out, time.Hour, 5)
	cmd := NewCommander(log, client, mon, &out, "solenoid")

	if err := cmd.Run(context.Background(), "auto_irrigation", []string{"30", "60"}); err != nil {
		t.Fatalf("network failures must not be returned, got %v", err)
	}
	if !strings.Contains(out.String(), "Error: Could not connect to controller at http://127.0.0.1:1") {
		t.Errorf("output:\n%s", out.String())
	}
	if mon.Active() {
		t.Error("monitoring must not start when the setup request failed")
	}

	out.Reset()
	if err := cmd.Run(context.Background(), "status", nil); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "Could not fetch system status") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestUsageListsCommands(t *testing.T) {
	text := Usage("solenoid")
	for name := range commands {
		if !strings.Contains(text, name) {
			t.Errorf("usage does not mention %q", name)
		}
	}
}

func TestParseErrorMessage(t *testing.T) {
	parseErr := errors.New("--bogus is not recognized")

	tests := []struct {
		name string
		argv []string
		err  error
		want string
	}{
		{"no args", nil, parseErr, "Error: No solenoid command received."},
		{"only options", []string{"--host", "10.0.0.2"}, parseErr, "Error: No solenoid command received."},
		{"unknown option with command", []string{"--bogus", "open"}, parseErr, "Error: --bogus is not recognized"},
		{"empty docopt message", []string{"--config=x.yaml", "open"}, errors.New(""), "Error: Invalid arguments."},
		{"after separator", []string{"--", "status"}, parseErr, "Error: --bogus is not recognized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorMessage(tt.argv, tt.err, "--config", "--host")
			if got != tt.want {
				t.Errorf("ParseErrorMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
