// Package api implements REST client for the Media Miner backend: job creation and stop,
// metadata preview and the downloaded files listing.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
)

const maxResponseSize = 1024 * 1024

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Params defines client parameters
type Params struct {
	BaseURL    string        // e.g. http://localhost:8000
	Timeout    time.Duration // per request, default 30s
	Repeater   Repeater      // retries for idempotent requests, single attempt if nil
	HTTPClient *http.Client  // optional, made from Timeout if nil
}

// Client makes requests to the backend
type Client struct {
	baseURL  string
	http     *http.Client
	repeater Repeater
}

// RequestError is returned for non-success responses
type RequestError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "Request failed"
}

// New makes Client for given params
func New(p Params) *Client {
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	res := &Client{baseURL: strings.TrimSuffix(p.BaseURL, "/"), http: p.HTTPClient, repeater: p.Repeater}
	if res.http == nil {
		res.http = &http.Client{Timeout: p.Timeout}
	}
	if res.repeater == nil {
		res.repeater = repeater.New(&strategy.Once{})
	}
	return res
}

// BaseURL returns backend address the client is bound to
func (c *Client) BaseURL() string { return c.baseURL }

// CreateAudioJob sends POST /api/jobs/audio and returns new job id. Never retried.
func (c *Client) CreateAudioJob(ctx context.Context, req AudioRequest) (string, error) {
	resp := jobResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/jobs/audio", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", errors.New("empty job id in response")
	}
	return resp.JobID, nil
}

// CreateVideoJob sends POST /api/jobs/video and returns new job id. Never retried.
func (c *Client) CreateVideoJob(ctx context.Context, req VideoRequest) (string, error) {
	resp := jobResponse{}
	if err := c.do(ctx, http.MethodPost, "/api/jobs/video", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", errors.New("empty job id in response")
	}
	return resp.JobID, nil
}

// StopJob sends POST /api/jobs/{id}/stop, only success or failure matters
func (c *Client) StopJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/stop", nil, nil)
}

// Metadata fetches preview of the source url
func (c *Client) Metadata(ctx context.Context, sourceURL string) (Metadata, error) {
	res := Metadata{}
	err := c.repeater.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/api/metadata?url="+url.QueryEscape(sourceURL), nil, &res)
	})
	return res, err
}

// ListFiles returns files available for download on the server
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	res := filesResponse{}
	err := c.repeater.Do(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/api/files", nil, &res)
	})
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// ClearFiles removes all downloaded files on the server
func (c *Client) ClearFiles(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/files", nil, nil)
}

// do sends request with optional JSON body and decodes JSON response into out (if not nil)
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close response body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{Method: method, Path: path, Code: resp.StatusCode}
		detail := struct {
			Detail any `json:"detail"`
		}{}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != nil {
			reqErr.Detail = detailText(detail.Detail)
		}
		log.Printf("[DEBUG] %s %s returned %d", method, path, resp.StatusCode)
		return reqErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// detailText renders "detail" field, which is a string for HTTPException and a list for validation errors
func detailText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
