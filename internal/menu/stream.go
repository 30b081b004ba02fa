package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hare-lab/fieldclient/internal/display"
)

func (m *Menu) showStreamMenu() {
	rule := strings.Repeat("=", 50)
	title := fmt.Sprintf("%s SOIL MOISTURE STREAMING MENU", strings.ToUpper(m.client.StreamSensor()))
	fmt.Fprintf(m.out, "\n%s\n", rule)
	fmt.Fprintln(m.out, display.Center(title, 50))
	fmt.Fprintln(m.out, rule)
	fmt.Fprintln(m.out, "1. Last 10 seconds of data")
	fmt.Fprintln(m.out, "2. Last 30 seconds of data")
	fmt.Fprintln(m.out, "3. Last 60 seconds of data")
	fmt.Fprintln(m.out, "4. Custom time window")
	fmt.Fprintln(m.out, "5. Back to main menu")
	fmt.Fprintln(m.out, rule)
}

// runStream loops over the streaming sub-menu until the user goes back.
func (m *Menu) runStream(ctx context.Context) error {
	for {
		m.showStreamMenu()

		line, err := m.prompt("\nEnter your choice (1-5): ")
		if err != nil {
			return err
		}

		choice, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil {
			fmt.Fprintln(m.out, "Please enter a valid number")
		} else {
			if choice == streamBack {
				return nil
			}

			seconds, ok, err := m.streamWindow(choice)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			m.showStream(ctx, seconds)
		}

		again, err := m.confirm("\nWould you like to get another stream? (y/n): ")
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// streamWindow resolves a menu choice to seconds. Unknown choices fall back
// to the shortest window.
func (m *Menu) streamWindow(choice int) (int, bool, error) {
	if choice != streamCustom {
		seconds, ok := streamWindows[choice]
		if !ok {
			seconds = defaultStreamWindow
		}
		return seconds, true, nil
	}

	line, err := m.prompt("Enter time window in seconds: ")
	if err != nil {
		return 0, false, err
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		fmt.Fprintln(m.out, "Please enter a valid number")
		return 0, false, nil
	}
	if seconds <= 0 {
		fmt.Fprintln(m.out, "Time window must be positive")
		return 0, false, nil
	}
	return seconds, true, nil
}

func (m *Menu) showStream(ctx context.Context, seconds int) {
	fmt.Fprintf(m.out, "Streaming %s soil moisture data from last %d seconds...\n", m.client.StreamSensor(), seconds)

	readings := m.client.Stream(ctx, time.Duration(seconds)*time.Second)
	if len(readings) == 0 {
		fmt.Fprintln(m.out, "Failed to get stream data")
		return
	}

	m.formatter.Render(m.out, readings, m.client.StreamCellID(), m.client.StreamMeasurement())
}
