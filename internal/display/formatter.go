package display

import (
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/hare-lab/fieldclient/internal/model"
)

const (
	TimestampLayout = "01-02-2006 15:04:05"
	TimeColumn      = "Measurement Time (PT)"
	NotAvailable    = "N/A"

	headerWidth = 70
	footerWidth = 80
)

// Summary holds the statistics block printed above the readings table.
type Summary struct {
	CellID      int
	Measurement string
	Column      string
	TimeRange   string
	Count       int
	Mean        string
	Max         string
}

type Formatter struct {
	loc *time.Location
}

// NewFormatter renders timestamps in loc, which is the fixed reference zone.
func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{loc: loc}
}

func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

func (f *Formatter) FormatTimestamp(t time.Time) string {
	return t.In(f.loc).Format(TimestampLayout)
}

// Label returns the display name and unit for a measurement type. Unknown
// types take the unit of the first reading, or "units".
func Label(measurement string, readings []model.Reading) (name, unit string) {
	switch measurement {
	case "pressure":
		return "Pressure", "kPa"
	case "humidity":
		return "Soil Moisture", "%"
	case "flow rate":
		return "Flow Rate", "L/min"
	}

	unit = "units"
	if len(readings) > 0 && readings[0].Unit != "" {
		unit = readings[0].Unit
	}
	return capitalize(measurement), unit
}

func (f *Formatter) Summarize(readings []model.Reading, cellID int, measurement string) Summary {
	name, unit := Label(measurement, readings)

	s := Summary{
		CellID:      cellID,
		Measurement: name,
		Column:      fmt.Sprintf("%s (%s)", name, unit),
		TimeRange:   NotAvailable,
		Count:       len(readings),
		Mean:        NotAvailable,
		Max:         NotAvailable,
	}

	if len(readings) == 0 {
		return s
	}

	s.TimeRange = fmt.Sprintf("%s to %s",
		f.FormatTimestamp(readings[0].Timestamp),
		f.FormatTimestamp(readings[len(readings)-1].Timestamp),
	)

	sum, peak := 0.0, readings[0].Value
	for _, r := range readings {
		sum += r.Value
		if r.Value > peak {
			peak = r.Value
		}
	}
	s.Mean = fmt.Sprintf("%.2f", sum/float64(len(readings)))
	s.Max = fmt.Sprintf("%.2f", peak)

	return s
}

// Rows keeps the delivered order; it never re-sorts.
func (f *Formatter) Rows(readings []model.Reading) [][]string {
	rows := make([][]string, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []string{
			f.FormatTimestamp(r.Timestamp),
			fmt.Sprintf("%.3f", r.Value),
		})
	}
	return rows
}

func (f *Formatter) Render(w io.Writer, readings []model.Reading, cellID int, measurement string) {
	s := f.Summarize(readings, cellID, measurement)

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", headerWidth))
	fmt.Fprintln(w, Center(fmt.Sprintf("CELL %d %s DATA SUMMARY", cellID, strings.ToUpper(s.Measurement)), headerWidth))

	stats := [][2]string{
		{"Cell ID", fmt.Sprint(s.CellID)},
		{"Measurement Type", s.Measurement},
		{"Time Range", s.TimeRange},
		{"Data Points", fmt.Sprint(s.Count)},
		{"Avg " + s.Column, s.Mean},
		{"Max " + s.Column, s.Max},
	}
	for _, kv := range stats {
		fmt.Fprintf(w, "• %-20s: %s\n", kv[0], kv[1])
	}
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", headerWidth))

	if len(readings) == 0 {
		fmt.Fprintln(w, "No data available to display")
	} else {
		fmt.Fprintln(w, "DATA BY TIMESTAMPS:")
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{TimeColumn, s.Column})
		table.SetAutoFormatHeaders(false)
		table.SetAutoWrapText(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
		table.SetAlignment(tablewriter.ALIGN_CENTER)
		table.SetRowLine(true)
		table.AppendBulk(f.Rows(readings))
		table.Render()
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", footerWidth))
}

// Center pads s with spaces to width, biased the same way for odd margins
// as the menus expect.
func Center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	margin := width - n
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
