package batchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the server does not know the job.
var ErrNotFound = errors.New("not found")

// APIError describes a non-404 failure status from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("api returned status %d (%s): %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("api returned status %d", e.Status)
	}
}

// JobFetcher defines the read-only calls jobtail makes against the server.
// This interface is implemented by *Client and can be used for testing.
type JobFetcher interface {
	GetJob(ctx context.Context, jobID int64) (*Job, error)
	CountJobLogs(ctx context.Context, jobID int64) (int64, error)
	ListJobLogs(ctx context.Context, jobID, offset, limit int64) ([]JobLog, error)
}

// Ensure Client implements JobFetcher at compile time.
var _ JobFetcher = (*Client)(nil)

// Client talks to the batch server HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultAPIBase   = "http://127.0.0.1:8080/api"
	defaultUserAgent = "jobtail/dev"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 64 << 10
)

// NewClient builds a Client rooted at apiBase. A non-positive timeout uses
// the default.
func NewClient(apiBase string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// SetUserAgent overrides the User-Agent header.
func (c *Client) SetUserAgent(ua string) {
	if ua = strings.TrimSpace(ua); ua != "" {
		c.userAgent = ua
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetJob looks up a single job by id.
func (c *Client) GetJob(ctx context.Context, jobID int64) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("page_number", "1")
	values.Set("page_size", "1")
	values.Set("job_id", strconv.FormatInt(jobID, 10))

	var payload ListJobsResponse
	if err := c.get(ctx, []string{"jobs"}, values, &payload); err != nil {
		return nil, err
	}
	for i := range payload.Jobs {
		if payload.Jobs[i].ID == jobID {
			return &payload.Jobs[i], nil
		}
	}
	return nil, fmt.Errorf("job %d: %w", jobID, ErrNotFound)
}

// CountJobLogs returns how many log lines the server holds for the job.
func (c *Client) CountJobLogs(ctx context.Context, jobID int64) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	var payload CountJobLogsResponse
	path := []string{"jobs", strconv.FormatInt(jobID, 10), "logs", "count"}
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// ListJobLogs returns up to limit lines starting at offset.
func (c *Client) ListJobLogs(ctx context.Context, jobID, offset, limit int64) ([]JobLog, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if offset < 0 {
		offset = 0
	}
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(offset, 10))
	values.Set("limit", strconv.FormatInt(limit, 10))

	var payload ListJobLogsResponse
	path := []string{"jobs", strconv.FormatInt(jobID, 10), "logs"}
	if err := c.get(ctx, path, values, &payload); err != nil {
		return nil, err
	}
	return payload.Logs, nil
}

func (c *Client) get(ctx context.Context, path []string, query url.Values, dest any) error {
	reqURL := c.baseURL.JoinPath(path...)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}
	return c.doURL(ctx, http.MethodGet, reqURL, dest)
}

func (c *Client) doURL(ctx context.Context, method string, reqURL *url.URL, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", reqURL.Path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.ErrorCode
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = DefaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base %q: missing host", apiBase)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
