// Package client is a typed HTTP client for the habitflow API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"habitflow/internal/analytics"
	"habitflow/internal/model"
	"habitflow/pkg/trace"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use, set by WithToken or Login.
func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Routines(ctx context.Context) ([]model.RoutineItem, error) {
	var out []model.RoutineItem
	_, err := c.do(ctx, http.MethodGet, "/api/routines", nil, &out)
	return out, err
}

// CreateRoutine posts a new routine. Empty ID lets the server assign one.
func (c *Client) CreateRoutine(ctx context.Context, r model.RoutineItem) (model.RoutineItem, error) {
	req := map[string]any{
		"id":         r.ID,
		"title":      r.Title,
		"category":   r.Category,
		"start_time": r.StartTime,
		"end_time":   r.EndTime,
		"required":   r.Required,
	}
	var out model.RoutineItem
	_, err := c.do(ctx, http.MethodPost, "/api/routines", req, &out)
	return out, err
}

func (c *Client) UpdateRoutine(ctx context.Context, id string, patch model.RoutinePatch) (model.RoutineItem, error) {
	var out model.RoutineItem
	_, err := c.do(ctx, http.MethodPut, "/api/routines/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (c *Client) DeleteRoutine(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/routines/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) ResetRoutines(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/reset", nil, &out)
	return out.Count, err
}

// Completions lists records on date, or the whole history when date is empty.
func (c *Client) Completions(ctx context.Context, date string) ([]model.CompletionRecord, error) {
	path := "/api/completions"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out []model.CompletionRecord
	_, err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Toggle(ctx context.Context, date, routineID string) (model.CompletionRecord, error) {
	var out model.CompletionRecord
	_, err := c.do(ctx, http.MethodPost, "/api/completions/toggle", map[string]string{
		"date": date, "routine_id": routineID,
	}, &out)
	return out, err
}

func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/completions", nil, nil)
	return err
}

func (c *Client) Report(ctx context.Context) (analytics.Report, error) {
	var out analytics.Report
	_, err := c.do(ctx, http.MethodGet, "/api/analytics", nil, &out)
	return out, err
}
