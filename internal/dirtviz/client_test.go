package dirtviz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/hare-lab/fieldclient/internal/config"
	"github.com/hare-lab/fieldclient/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(discardLogger(), config.DirtVizConfig{
		BaseURL:       srv.URL + "/api",
		Timeout:       2 * time.Second,
		StreamTimeout: 2 * time.Second,
		Stream: config.StreamConfig{
			Sensor:      "sen0308",
			Measurement: "humidity",
			CellID:      1448,
		},
	})
}

func TestSensorDataSendsWindowInUTC(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sensor/" {
			t.Errorf("path = %q, want /api/sensor/", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		got = r.URL.Query()
		w.Write([]byte(`[{"timestamp": "Thu, 21 Aug 2025 07:00:00 GMT", "data": 101.2}]`))
	})

	pacific, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2025, 8, 21, 0, 0, 0, 0, pacific)
	end := time.Date(2025, 8, 21, 23, 59, 59, 0, pacific)

	readings, err := client.SensorData(context.Background(), model.Query{
		Name:        "sen0257",
		Measurement: "pressure",
		CellID:      1350,
		Start:       start,
		End:         end,
	})
	if err != nil {
		t.Fatalf("SensorData: %v", err)
	}
	if len(readings) != 1 || readings[0].Value != 101.2 {
		t.Fatalf("readings = %+v", readings)
	}

	checks := map[string]string{
		"name":        "sen0257",
		"measurement": "pressure",
		"cellId":      "1350",
		"startTime":   "Thu, 21 Aug 2025 07:00:00 GMT",
		"endTime":     "Fri, 22 Aug 2025 06:59:59 GMT",
	}
	for key, want := range checks {
		if got.Get(key) != want {
			t.Errorf("%s = %q, want %q", key, got.Get(key), want)
		}
	}
	if got.Has("stream") {
		t.Error("stream flag must not be sent for a regular query")
	}
}

func TestSensorDataWithoutWindow(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`[]`))
	})

	readings, err := client.SensorData(context.Background(), model.Query{
		Name:        "yfs210c",
		Measurement: "flow rate",
		CellID:      1353,
		Start:       time.Now(),
	})
	if err != nil {
		t.Fatalf("SensorData: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("expected no readings, got %d", len(readings))
	}
	if got.Has("startTime") || got.Has("endTime") {
		t.Error("time window must only be sent when both start and end are set")
	}
	if got.Get("measurement") != "flow rate" {
		t.Errorf("measurement = %q", got.Get("measurement"))
	}
}

func TestSensorDataHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cell not found", http.StatusNotFound)
	})

	_, err := client.SensorData(context.Background(), model.Query{Name: "x", Measurement: "y", CellID: 1})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", httpErr.StatusCode)
	}
	if httpErr.Body != "cell not found\n" {
		t.Errorf("body = %q", httpErr.Body)
	}
}

func TestStreamWindowAndFlag(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`[{"timestamp": "2025-08-21T12:00:00", "data": 38.1}]`))
	})
	now := time.Date(2025, 8, 21, 12, 0, 30, 0, time.UTC)
	client.now = func() time.Time { return now }

	readings := client.Stream(context.Background(), 30*time.Second)
	if len(readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(readings))
	}

	if got.Get("stream") != "true" {
		t.Errorf("stream = %q, want true", got.Get("stream"))
	}
	if got.Get("name") != "sen0308" || got.Get("cellId") != "1448" || got.Get("measurement") != "humidity" {
		t.Errorf("unexpected sensor params: %v", got)
	}
	if got.Get("startTime") != "Thu, 21 Aug 2025 12:00:00 GMT" {
		t.Errorf("startTime = %q", got.Get("startTime"))
	}
	if got.Get("endTime") != "Thu, 21 Aug 2025 12:00:30 GMT" {
		t.Errorf("endTime = %q", got.Get("endTime"))
	}
}

func TestStreamFailureReturnsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	readings := client.Stream(context.Background(), 10*time.Second)
	if readings == nil || len(readings) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", readings)
	}
}

func TestStreamUnreachable(t *testing.T) {
	client := NewClient(discardLogger(), config.DirtVizConfig{
		BaseURL:       "http://127.0.0.1:1/api/",
		Timeout:       time.Second,
		StreamTimeout: time.Second,
	})

	if readings := client.Stream(context.Background(), 10*time.Second); len(readings) != 0 {
		t.Fatalf("expected empty result, got %d", len(readings))
	}
}

func TestSensorDataSkipsRecordsWithoutValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"timestamp": "Thu, 21 Aug 2025 07:00:00 GMT", "data": 40.5},
			{"timestamp": "Thu, 21 Aug 2025 07:01:00 GMT", "data": null},
			{"timestamp": "Thu, 21 Aug 2025 07:02:00 GMT"},
			{"timestamp": "Thu, 21 Aug 2025 07:03:00 GMT", "data": "41.25"}
		]`))
	})

	readings, err := client.SensorData(context.Background(), model.Query{
		Name:        "sen0308",
		Measurement: "humidity",
		CellID:      1448,
	})
	if err != nil {
		t.Fatalf("SensorData: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}
	if readings[0].Value != 40.5 || readings[1].Value != 41.25 {
		t.Errorf("values = %v, %v", readings[0].Value, readings[1].Value)
	}
}

func TestSensorDataRejectsNonArrayBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "nope"}`))
	})

	if _, err := client.SensorData(context.Background(), model.Query{CellID: 1}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHTTPErrorPrefixKeepsRunesWhole(t *testing.T) {
	e := &HTTPError{Body: "abécd"}

	if got := e.Prefix(3); got != "ab" {
		t.Errorf("Prefix(3) = %q, want %q", got, "ab")
	}
	if got := e.Prefix(4); got != "abé" {
		t.Errorf("Prefix(4) = %q, want %q", got, "abé")
	}
	if got := e.Prefix(100); got != e.Body {
		t.Errorf("Prefix(100) = %q", got)
	}
	if got := truncate("éé", 3); got != "é..." {
		t.Errorf("truncate = %q", got)
	}
}
