package solenoid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hare-lab/fieldclient/internal/model"
)

// Response is the raw answer of a controller command endpoint.
type Response struct {
	StatusCode int
	Body       string
}

func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client talks to the irrigation controller's HTTP endpoints.
type Client struct {
	log     *slog.Logger
	baseURL string
	client  *http.Client
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) OpenValve(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/open", nil, nil)
}

func (c *Client) CloseValve(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/close", nil, nil)
}

// Timed opens the valve for seconds. The value is sent as given; the
// controller rejects anything it cannot parse.
func (c *Client) Timed(ctx context.Context, seconds string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/timed", url.Values{"time": {seconds}}, nil)
}

func (c *Client) State(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/state", nil, nil)
}

// SetThresholds updates min/max without touching the auto irrigation flag.
func (c *Client) SetThresholds(ctx context.Context, lower, upper string) (*Response, error) {
	form := url.Values{"min": {lower}, "max": {upper}}
	return c.do(ctx, http.MethodPost, "/irrigation_setup", nil, form)
}

// EnableAutoIrrigation sets the thresholds and turns auto irrigation on in one call.
func (c *Client) EnableAutoIrrigation(ctx context.Context, lower, upper string) (*Response, error) {
	form := url.Values{"min": {lower}, "max": {upper}, "enable": {"true"}}
	return c.do(ctx, http.MethodPost, "/irrigation_setup", nil, form)
}

func (c *Client) SetAuto(ctx context.Context, enable bool) (*Response, error) {
	form := url.Values{"enable": {strconv.FormatBool(enable)}}
	return c.do(ctx, http.MethodPost, "/auto", nil, form)
}

// Status fetches the full controller snapshot. Any non-200 answer is an error.
func (c *Client) Status(ctx context.Context) (*model.ControllerStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/status", nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.Body)
	}

	var status model.ControllerStatus
	if err := json.Unmarshal([]byte(resp.Body), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values) (*Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debug("controller responded",
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return &Response{StatusCode: resp.StatusCode, Body: string(data)}, nil
}
