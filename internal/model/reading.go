package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reading is one record returned by the sensor data API.
type Reading struct {
	Timestamp time.Time
	Value     float64
	Unit      string
}

// Layouts the API has been seen to use. Values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC1123,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type rawReading struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Unit      string          `json:"unit,omitempty"`
}

func (r *Reading) UnmarshalJSON(b []byte) error {
	var raw rawReading
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	value, err := parseValue(raw.Data)
	if err != nil {
		return err
	}

	r.Timestamp = ts
	r.Value = value
	r.Unit = raw.Unit
	return nil
}

// ParseTimestamp accepts any of the API timestamp layouts and returns a UTC instant.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseValue(data json.RawMessage) (float64, error) {
	if len(data) == 0 || string(data) == "null" {
		return 0, fmt.Errorf("reading has no data value")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}

	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse data value %q: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported data value %s", string(data))
	}
}
