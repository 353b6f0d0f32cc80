package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/chirp/internal/queue"
	"github.com/garrettladley/chirp/internal/service/notification"
	"github.com/garrettladley/chirp/internal/xerrors"
	"github.com/garrettladley/chirp/internal/xhttp"
)

const requestTimeout = 30 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Code       xerrors.Code
	Message    string
	Fields     map[string]string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Message)
}

// Client talks to the chirp REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: xhttp.NewHTTPClient(
			xhttp.WithTimeout(requestTimeout),
			xhttp.WithTransport(xhttp.NewTransport("notifyctl", apiKey)),
		),
	}
}

type publishResponse struct {
	ID string `json:"id"`
}

// Publish submits an event and returns the id the server assigned to it.
func (c *Client) Publish(ctx context.Context, e queue.Event) (string, error) {
	body, err := go_json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encoding event: %w", err)
	}

	var resp publishResponse
	if err := c.do(ctx, http.MethodPost, "/api/events", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListNotifications returns userID's stored notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, userID string) (*notification.ListResult, error) {
	var resp notification.ListResult
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set(xhttp.ContentType, "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp xerrors.Response
		_ = go_json.NewDecoder(resp.Body).Decode(&errResp)
		return &StatusError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    errResp.Message,
			Fields:     errResp.Fields,
		}
	}

	if out == nil {
		return nil
	}
	if err := go_json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
