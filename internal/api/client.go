package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/httputil"
)

// Client talks to a running motion server.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a client for baseURL. A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return httputil.DecodeResponse(resp, out)
}

// Compare posts two raw landmark documents for comparison.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var resp CompareResponse
	if err := c.do(ctx, http.MethodPost, "/api/compare", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRun fetches a stored comparison run with its frame trace.
func (c *Client) GetRun(ctx context.Context, id string) (*db.ComparisonRun, error) {
	var run db.ComparisonRun
	if err := c.do(ctx, http.MethodGet, "/api/comparisons/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns fetches the most recent runs.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*db.ComparisonRun, error) {
	path := "/api/comparisons"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var runs []*db.ComparisonRun
	if err := c.do(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes a stored run.
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/comparisons/"+url.PathEscape(id), nil, nil)
}
