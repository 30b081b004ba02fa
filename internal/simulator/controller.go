package simulator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hare-lab/fieldclient/internal/model"
)

const (
	dryingRate  = 0.5
	wettingRate = 2.0
)

// Controller is an in-memory stand-in for the ESP32 valve controller.
type Controller struct {
	log *slog.Logger

	mu            sync.Mutex
	open          bool
	autoEnabled   bool
	minThreshold  float64
	maxThreshold  float64
	moisture      float64
	checkInterval time.Duration
	closeTimer    *time.Timer
}

func NewController(log *slog.Logger, moisture float64, checkInterval time.Duration) *Controller {
	return &Controller{
		log:           log,
		moisture:      moisture,
		minThreshold:  30,
		maxThreshold:  60,
		checkInterval: checkInterval,
	}
}

func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.open = true
}

func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.open = false
}

// OpenFor opens the valve and closes it again after d.
func (c *Controller) OpenFor(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.open = true
	c.closeTimer = time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.open = false
		c.closeTimer = nil
		c.log.Info("timed irrigation finished")
	})
}

func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) SetThresholds(lower, upper float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minThreshold = lower
	c.maxThreshold = upper
}

func (c *Controller) SetAuto(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoEnabled = enabled
}

func (c *Controller) SetMoisture(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moisture = v
}

func (c *Controller) Status() model.ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	moisture := number(c.moisture)
	lower := number(c.minThreshold)
	upper := number(c.maxThreshold)
	interval := number(c.checkInterval.Seconds())
	state := c.stateLocked()
	auto := c.autoEnabled

	return model.ControllerStatus{
		CurrentMoisture:       &moisture,
		SolenoidState:         &state,
		AutoIrrigationEnabled: &auto,
		MinThreshold:          &lower,
		MaxThreshold:          &upper,
		CheckIntervalSeconds:  &interval,
	}
}

// Run advances the soil model every check interval until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step()
		}
	}
}

// Step applies one check cycle: moisture drifts with the valve state, then
// auto irrigation opens below the minimum and closes above the maximum.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		c.moisture += wettingRate
	} else {
		c.moisture -= dryingRate
	}
	if c.moisture < 0 {
		c.moisture = 0
	}
	if c.moisture > 100 {
		c.moisture = 100
	}

	if !c.autoEnabled {
		return
	}

	switch {
	case c.moisture < c.minThreshold && !c.open:
		c.stopTimerLocked()
		c.open = true
		c.log.Info("auto irrigation opened valve", slog.Float64("moisture", c.moisture))
	case c.moisture > c.maxThreshold && c.open:
		c.stopTimerLocked()
		c.open = false
		c.log.Info("auto irrigation closed valve", slog.Float64("moisture", c.moisture))
	}
}

func (c *Controller) stateLocked() string {
	if c.open {
		return model.SolenoidOpen
	}
	return model.SolenoidClosed
}

func (c *Controller) stopTimerLocked() {
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
}

func number(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}
