package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"karaoke/internal/services"
	"karaoke/internal/workflow"
)

// ErrAPIUnavailable reports that no daemon answered at the configured bind.
var ErrAPIUnavailable = errors.New("karaoke API unavailable")

// StatusError is a non-2xx response from the daemon.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// Is maps HTTP statuses back onto the error markers the daemon started from.
func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == services.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == services.ErrValidation
	case http.StatusConflict:
		return target == workflow.ErrJobProcessing || target == workflow.ErrJobFinished
	case http.StatusServiceUnavailable:
		return target == workflow.ErrQueueFull
	}
	return false
}

// Client talks to the daemon HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient constructs a client for bind (host:port or URL). An empty bind
// returns a nil client; every method on a nil client returns
// ErrAPIUnavailable.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout: event waits block until the caller cancels.
		http: &http.Client{},
	}, nil
}

// Health pings the daemon.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, &resp)
}

// Status returns daemon diagnostics.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &resp)
	return resp, err
}

// Submit creates a job.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Job, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", nil, req, &resp)
	return resp.Job, err
}

// Jobs lists jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]Job, error) {
	values := url.Values{}
	for _, s := range statuses {
		if s = strings.TrimSpace(s); s != "" {
			values.Add("status", s)
		}
	}
	var resp JobListResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", values, nil, &resp)
	return resp.Jobs, err
}

// Job fetches one job.
func (c *Client) Job(ctx context.Context, id string) (Job, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodGet, jobPath(id), nil, nil, &resp)
	return resp.Job, err
}

// Cancel stops a job.
func (c *Client) Cancel(ctx context.Context, id string) (Job, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodPost, jobPath(id)+"/cancel", nil, nil, &resp)
	return resp.Job, err
}

// Delete removes a job, and its output directory when removeOutputs is set.
func (c *Client) Delete(ctx context.Context, id string, removeOutputs bool) error {
	values := url.Values{}
	if removeOutputs {
		values.Set("outputs", "1")
	}
	return c.do(ctx, http.MethodDelete, jobPath(id), values, nil, nil)
}

// Outputs lists a job's rendered files.
func (c *Client) Outputs(ctx context.Context, id string) ([]OutputFile, error) {
	var resp OutputsResponse
	err := c.do(ctx, http.MethodGet, jobPath(id)+"/outputs", nil, nil, &resp)
	return resp.Outputs, err
}

// Events fetches events after since, optionally for one job. With wait the
// daemon holds the request until an event arrives or its wait limit passes.
func (c *Client) Events(ctx context.Context, since uint64, jobID string, wait bool) (EventsResponse, error) {
	values := url.Values{}
	if since > 0 {
		values.Set("since", strconv.FormatUint(since, 10))
	}
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		values.Set("job", jobID)
	}
	if wait {
		values.Set("wait", "1")
	}
	var resp EventsResponse
	err := c.do(ctx, http.MethodGet, "/api/events", values, nil, &resp)
	return resp, err
}

// Styles lists subtitle templates.
func (c *Client) Styles(ctx context.Context) ([]Style, error) {
	var resp StylesResponse
	err := c.do(ctx, http.MethodGet, "/api/styles", nil, nil, &resp)
	return resp.Styles, err
}

// Ratios lists aspect ratio presets.
func (c *Client) Ratios(ctx context.Context) ([]Ratio, error) {
	var resp RatiosResponse
	err := c.do(ctx, http.MethodGet, "/api/ratios", nil, nil, &resp)
	return resp.Ratios, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func jobPath(id string) string {
	return "/api/jobs/" + url.PathEscape(strings.TrimSpace(id))
}

// IsAPIUnavailable reports whether err means the daemon is not reachable.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
