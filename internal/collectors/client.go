// Package collectors fetches one data domain at a time from the admin
// backend and writes the result into the store.
package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	constants "nselfadmin/config"
	"nselfadmin/internal/encoding"
	apperrors "nselfadmin/internal/errors"
	"nselfadmin/internal/logger"
)

// Client talks to the collaborator's REST endpoints.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a client with the given timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = constants.DEFAULT_COLLABORATOR_TIMEOUT
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the collaborator's response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Fetch GETs path and returns the envelope's data. The body is decoded as
// CBOR or JSON according to its Content-Type.
func Fetch[T any](ctx context.Context, c *Client, path string) (T, error) {
	return Send[T](ctx, c, http.MethodGet, path, nil)
}

// Send issues method on path with an optional JSON body and decodes the
// envelope's data.
func Send[T any](ctx context.Context, c *Client, method, path string, body interface{}) (T, error) {
	var env envelope[T]
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return env.Data, err
	}
	if err := encoding.ReadResponse(resp, &env); err != nil {
		return env.Data, apperrors.WrapWithContext(apperrors.ErrCodeInvalidResponse, "failed to decode response", err,
			map[string]any{"path": path})
	}
	if !env.Success {
		return env.Data, unsuccessful(path, env.Error)
	}
	return env.Data, nil
}

func unsuccessful(path, msg string) error {
	if msg == "" {
		msg = "request was not successful"
	}
	return apperrors.NewWithContext(apperrors.ErrCodeUnavailable, msg, map[string]any{"path": path})
}

// do sends the request and returns a 2xx response; the caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.BaseURL + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to encode body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", encoding.ContentTypeJSON)
	}
	req.Header.Set("Accept", constants.HEADER_ACCEPT)
	req.Header.Set("User-Agent", constants.HEADER_USER_AGENT)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	logger.Debug("%s %s", method, url)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		code := apperrors.ErrCodeUnavailable
		if isTimeout(err) {
			code = apperrors.ErrCodeTimeout
		}
		return nil, apperrors.WrapWithContext(code, "request failed", err, map[string]any{"path": path})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		var env envelope[struct{}]
		if encoding.ReadResponse(resp, &env) == nil && env.Error != "" {
			msg += ": " + env.Error
		}
		return nil, apperrors.NewWithContext(apperrors.ErrCodeUnavailable, msg,
			map[string]any{"path": path, "status": resp.StatusCode})
	}
	return resp, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
