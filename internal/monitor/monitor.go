package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/model"
)

type StatusFetcher interface {
	Status(ctx context.Context) (*model.ControllerStatus, error)
}

// Monitor owns the single background status poller. At most one poll loop
// runs at a time; Stop is cooperative and does not wait for the loop to exit.
type Monitor struct {
	log          *slog.Logger
	fetcher      StatusFetcher
	out          io.Writer
	interval     time.Duration
	summaryEvery int

	active atomic.Bool

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func New(log *slog.Logger, fetcher StatusFetcher, out io.Writer, interval time.Duration, summaryEvery int) *Monitor {
	if summaryEvery < 1 {
		summaryEvery = 1
	}
	return &Monitor{
		log:          log,
		fetcher:      fetcher,
		out:          out,
		interval:     interval,
		summaryEvery: summaryEvery,
	}
}

// Start launches the poll loop. It reports false when a loop is still alive.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runningLocked() {
		fmt.Fprintln(m.out, "Auto monitoring is already running")
		return false
	}

	m.active.Store(true)
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})

	go m.run(ctx, m.stopCh, m.done)

	fmt.Fprintln(m.out, "Auto monitoring started")
	return true
}

// Stop clears the active flag and wakes the loop, which exits on its own.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active.Store(false)
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	fmt.Fprintln(m.out, "Auto monitoring stopping...")
}

func (m *Monitor) Active() bool {
	return m.active.Load()
}

// Done is closed once the current loop has exited. It is already closed when
// no loop was ever started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

func (m *Monitor) runningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Monitor) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer m.active.Store(false)

	fmt.Fprintf(m.out, "Starting continuous status monitoring (interval: %s)\n", m.interval)
	m.log.Info("status monitoring started", slog.Duration("interval", m.interval))

	for cycle := 1; m.active.Load(); cycle++ {
		m.poll(ctx, cycle)

		if !m.wait(ctx, stop) {
			break
		}
	}

	fmt.Fprintln(m.out, "Status monitoring stopped")
	m.log.Info("status monitoring stopped")
}

// wait sleeps for one interval and reports false if the loop should exit.
func (m *Monitor) wait(ctx context.Context, stop <-chan struct{}) bool {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	select {
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return m.active.Load()
	}
}

func (m *Monitor) poll(ctx context.Context, cycle int) {
	status, err := m.fetcher.Status(ctx)
	if err != nil || status == nil {
		if err != nil {
			m.log.Debug("status poll failed", slog.Int("cycle", cycle), sl.Err(err))
		}
		fmt.Fprintf(m.out, "Cycle %d: Could not fetch system status\n", cycle)
		return
	}

	if cycle%m.summaryEvery == 0 {
		WriteSummary(m.out, status, m.Active())
		return
	}

	fmt.Fprintf(m.out, "Cycle %d: Moisture=%s%%, Solenoid=%s\n", cycle, status.Moisture(), status.StateUpper())
}
