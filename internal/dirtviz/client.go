package dirtviz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hare-lab/fieldclient/internal/config"
	"github.com/hare-lab/fieldclient/internal/lib/logger/sl"
	"github.com/hare-lab/fieldclient/internal/model"
)

// TimeFormat is the layout the API expects for startTime/endTime, always in UTC.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

type Client struct {
	log          *slog.Logger
	baseURL      string
	client       *http.Client
	streamClient *http.Client
	stream       config.StreamConfig
	now          func() time.Time
}

func NewClient(log *slog.Logger, cfg config.DirtVizConfig) *Client {
	return &Client{
		log:          log,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/") + "/",
		client:       &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{Timeout: cfg.StreamTimeout},
		stream:       cfg.Stream,
		now:          time.Now,
	}
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// SensorData fetches readings for q. A non-2xx answer is returned as *HTTPError.
func (c *Client) SensorData(ctx context.Context, q model.Query) ([]model.Reading, error) {
	params := queryParams(q.Name, q.Measurement, q.CellID)
	if q.HasWindow() {
		params.Set("startTime", FormatTime(q.Start))
		params.Set("endTime", FormatTime(q.End))
	}

	return c.get(ctx, c.client, params)
}

// Stream fetches the configured streaming sensor's readings for the last
// window. Failures are logged and yield an empty slice.
func (c *Client) Stream(ctx context.Context, window time.Duration) []model.Reading {
	end := c.now()
	start := end.Add(-window)

	params := queryParams(c.stream.Sensor, c.stream.Measurement, c.stream.CellID)
	params.Set("startTime", FormatTime(start))
	params.Set("endTime", FormatTime(end))
	params.Set("stream", "true")

	readings, err := c.get(ctx, c.streamClient, params)
	if err != nil {
		attrs := []any{
			slog.Int("cell_id", c.stream.CellID),
			slog.Duration("window", window),
			sl.Err(err),
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			attrs = append(attrs, slog.String("response", truncate(httpErr.Body, 200)))
		}
		c.log.Error("failed to get stream", attrs...)
		return []model.Reading{}
	}

	return readings
}

// StreamCellID is the cell queried by Stream.
func (c *Client) StreamCellID() int {
	return c.stream.CellID
}

func (c *Client) StreamMeasurement() string {
	return c.stream.Measurement
}

func (c *Client) StreamSensor() string {
	return c.stream.Sensor
}

func (c *Client) get(ctx context.Context, client *http.Client, params url.Values) ([]model.Reading, error) {
	endpoint := c.baseURL + "sensor/?" + params.Encode()
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.log.Debug("requesting sensor data",
		slog.String("request_id", requestID),
		slog.String("url", endpoint),
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	readings, err := c.decodeReadings(body, requestID)
	if err != nil {
		return nil, err
	}

	c.log.Debug("sensor data received",
		slog.String("request_id", requestID),
		slog.Int("count", len(readings)),
	)

	return readings, nil
}

func queryParams(name, measurement string, cellID int) url.Values {
	params := url.Values{}
	params.Set("name", name)
	params.Set("measurement", measurement)
	params.Set("cellId", strconv.Itoa(cellID))
	return params
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// decodeReadings keeps every record that parses. A record with a missing or
// malformed value is logged and skipped so one bad row does not hide the rest.
func (c *Client) decodeReadings(body []byte, requestID string) ([]model.Reading, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	readings := make([]model.Reading, 0, len(records))
	for i, rec := range records {
		var r model.Reading
		if err := json.Unmarshal(rec, &r); err != nil {
			c.log.Warn("skipping sensor record",
				slog.String("request_id", requestID),
				slog.Int("index", i),
				sl.Err(err),
			)
			continue
		}
		readings = append(readings, r)
	}

	return readings, nil
}

// Prefix returns at most n bytes of the response body, cut on a rune boundary.
func (e *HTTPError) Prefix(n int) string {
	return cutRunes(e.Body, n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return cutRunes(s, n) + "..."
}

func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
