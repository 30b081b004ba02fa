package menu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hare-lab/fieldclient/internal/display"
)

var (
	errDateFormat = errors.New("invalid date format")
	errDateRange  = errors.New("invalid date values")
)

func (m *Menu) showTimeRangeMenu() {
	rule := strings.Repeat("=", 40)
	fmt.Fprintf(m.out, "\n%s\n", rule)
	fmt.Fprintln(m.out, display.Center("SELECT TIME RANGE", 40))
	fmt.Fprintln(m.out, rule)
	fmt.Fprintln(m.out, "1. Today's data")
	fmt.Fprintln(m.out, "2. This week's data")
	fmt.Fprintln(m.out, "3. Custom date range")
	fmt.Fprintln(m.out, rule)
}

// timeRange asks for today, the last seven days, or a custom date pair, all
// in the reference timezone.
func (m *Menu) timeRange() (time.Time, time.Time, error) {
	m.showTimeRangeMenu()

	for {
		line, err := m.prompt("\nEnter your choice (1-3): ")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(m.out, "Please enter a valid number.")
			continue
		}

		now := m.now().In(m.loc)
		midnight := startOfDay(now)

		switch choice {
		case 1:
			return midnight, now, nil
		case 2:
			return midnight.AddDate(0, 0, -7), now, nil
		case 3:
			start, err := m.readDate("Enter start date (YYYY-MM-DD): ")
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end, err := m.readDate("Enter end date (YYYY-MM-DD): ")
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, m.loc)
			return start, end, nil
		default:
			fmt.Fprintln(m.out, "Invalid choice. Please select 1-3.")
		}
	}
}

// readDate reprompts until the input parses. Empty input means today.
func (m *Menu) readDate(label string) (time.Time, error) {
	for {
		line, err := m.prompt(label)
		if err != nil {
			return time.Time{}, err
		}

		if line == "" {
			return startOfDay(m.now().In(m.loc)), nil
		}

		t, err := ParseDate(line, m.loc)
		switch {
		case errors.Is(err, errDateRange):
			fmt.Fprintln(m.out, "Invalid date values. Please enter a valid date between 2000-2100.")
		case err != nil:
			fmt.Fprintln(m.out, "Invalid date format. Please use YYYY-MM-DD format (e.g., 2025-08-21).")
		default:
			return t, nil
		}
	}
}

// ParseDate reads YYYY-MM-DD at midnight in loc. Only bounds are checked:
// year 2000-2100, month 1-12, day 1-31. Days past the end of a month roll
// over into the next one, so 2025-02-30 is March 2.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, errDateFormat
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, errDateFormat
		}
		nums[i] = n
	}

	year, month, day := nums[0], nums[1], nums[2]
	if year < 2000 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, errDateRange
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
