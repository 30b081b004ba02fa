package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hare-lab/fieldclient/internal/dirtviz"
	"github.com/hare-lab/fieldclient/internal/display"
	"github.com/hare-lab/fieldclient/internal/model"
)

const (
	choiceStream = 4
	choiceCustom = 5
	choiceExit   = 6

	streamCustom = 4
	streamBack   = 5

	defaultStreamWindow = 10
	maxResponseEcho     = 500
)

var (
	errInputClosed   = errors.New("input closed")
	errInvalidNumber = errors.New("invalid number")
	errInvalidChoice = errors.New("invalid choice")
)

// SensorSource is the part of the data API client the menus drive.
type SensorSource interface {
	SensorData(ctx context.Context, q model.Query) ([]model.Reading, error)
	Stream(ctx context.Context, window time.Duration) []model.Reading
	StreamCellID() int
	StreamMeasurement() string
	StreamSensor() string
}

type preset struct {
	cellID      int
	sensor      string
	measurement string
}

var presets = map[int]preset{
	1: {cellID: 1350, sensor: "sen0257", measurement: "pressure"},
	2: {cellID: 1353, sensor: "yfs210c", measurement: "flow"},
	3: {cellID: 1448, sensor: "sen0308", measurement: "humidity"},
}

var streamWindows = map[int]int{1: 10, 2: 30, 3: 60}

type Menu struct {
	log       *slog.Logger
	client    SensorSource
	formatter *display.Formatter
	loc       *time.Location
	in        *bufio.Reader
	out       io.Writer
	now       func() time.Time
}

func New(
	log *slog.Logger,
	client SensorSource,
	formatter *display.Formatter,
	loc *time.Location,
	in io.Reader,
	out io.Writer,
) *Menu {
	return &Menu{
		log:       log,
		client:    client,
		formatter: formatter,
		loc:       loc,
		in:        bufio.NewReader(in),
		out:       out,
		now:       time.Now,
	}
}

// Run drives the top-level menu until the user exits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.showMainMenu()
		line, err := m.prompt("\nEnter your choice (1-6): ")
		if err != nil {
			return m.finish(err)
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		switch {
		case convErr != nil:
			fmt.Fprintln(m.out, "Please enter a valid number.")
		case choice == choiceExit:
			fmt.Fprintln(m.out, "Exiting program. Goodbye!")
			return nil
		case choice == choiceStream:
			if err := m.runStream(ctx); err != nil {
				return m.finish(err)
			}
			continue
		default:
			err := m.viewCell(ctx, choice)
			if errors.Is(err, errInputClosed) {
				return m.finish(err)
			}
			if errors.Is(err, errInvalidChoice) {
				fmt.Fprintln(m.out, "Invalid choice. Please try again.")
				continue
			}
			if err != nil {
				m.reportError(err)
			}
		}

		again, err := m.confirm("\nWould you like to view another cell? (y/n): ")
		if err != nil {
			return m.finish(err)
		}
		if !again {
			fmt.Fprintln(m.out, "Exiting program. Goodbye!")
			return nil
		}
	}
}

func (m *Menu) viewCell(ctx context.Context, choice int) error {
	var q model.Query

	if choice == choiceCustom {
		line, err := m.prompt("Enter cell ID: ")
		if err != nil {
			return err
		}
		cellID, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return errInvalidNumber
		}
		sensor, err := m.prompt("Enter sensor name (e.g., sen0257, yfs210c, etc.): ")
		if err != nil {
			return err
		}
		measurement, err := m.prompt("Enter measurement type (e.g., pressure, moisture): ")
		if err != nil {
			return err
		}
		q = model.Query{Name: sensor, Measurement: measurement, CellID: cellID}
	} else {
		p, ok := presets[choice]
		if !ok {
			return errInvalidChoice
		}
		q = model.Query{Name: p.sensor, Measurement: p.measurement, CellID: p.cellID}
	}

	fmt.Fprintf(m.out, "\nFetching data for cell %d...\n", q.CellID)

	start, end, err := m.timeRange()
	if err != nil {
		return err
	}
	q.Start, q.End = start, end

	if start.After(end) {
		m.log.Warn("start date is after end date",
			slog.Time("start", start),
			slog.Time("end", end),
		)
	}

	readings, err := m.client.SensorData(ctx, q)
	if err != nil {
		return err
	}

	if len(readings) == 0 {
		fmt.Fprintln(m.out, "No data received for the specified time range.")
		return nil
	}

	m.formatter.Render(m.out, readings, q.CellID, q.Measurement)
	return nil
}

func (m *Menu) reportError(err error) {
	var httpErr *dirtviz.HTTPError
	switch {
	case errors.Is(err, errInvalidNumber):
		fmt.Fprintln(m.out, "Please enter a valid number.")
	case errors.As(err, &httpErr):
		fmt.Fprintf(m.out, "\nHTTP Error: %v\n", httpErr)
		fmt.Fprintf(m.out, "Response: %s...\n", httpErr.Prefix(maxResponseEcho))
	default:
		fmt.Fprintf(m.out, "\nUnexpected error: %v\n", err)
	}
}

func (m *Menu) finish(err error) error {
	if errors.Is(err, errInputClosed) {
		fmt.Fprintln(m.out, "\nExiting program. Goodbye!")
		return nil
	}
	return err
}

func (m *Menu) showMainMenu() {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(m.out, "\n%s\n", rule)
	fmt.Fprintln(m.out, display.Center("DIRT VIZ SENSOR DATA VIEWER", 50))
	fmt.Fprintln(m.out, rule)
	fmt.Fprintln(m.out, "Note: options 1-3 display averaged hourly measurements only.")
	fmt.Fprintln(m.out, "Available Cells and Measurements:")
	fmt.Fprintln(m.out, "1. Cell 1350 - Pressure (kPa)")
	fmt.Fprintln(m.out, "2. Cell 1353 - Flow Rate (L/min)")
	fmt.Fprintln(m.out, "3. Cell 1448 - Soil Moisture (%)")
	fmt.Fprintln(m.out, "4. Real-Time Soil Moisture Measurement Stream")
	fmt.Fprintln(m.out, "5. Custom Cell (enter cell ID and measurement type)")
	fmt.Fprintln(m.out, "6. Exit")
	fmt.Fprintln(m.out, rule)
}

// prompt writes label and reads one line without its line ending.
func (m *Menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)

	line, err := m.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", errInputClosed
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (m *Menu) confirm(label string) (bool, error) {
	line, err := m.prompt(label)
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(line)) == "y", nil
}
