// Package remote holds the JSON-over-HTTP plumbing shared by the taskhub
// API clients.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dtroode/taskhub-server/internal/model"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client sends requests to the taskhub HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewRequest builds a request against path. A non-empty accessToken is sent
// as a bearer token.
func (c *Client) NewRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

// Do sends req. A 2xx response body is decoded into out when out is not
// nil; any other status becomes a *model.RemoteError.
func (c *Client) Do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.RemoteError{Op: op, Message: fmt.Sprintf("%s failed: %v", op, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrorFromResponse(op, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.RemoteError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("%s failed: invalid response body", op),
			Err:     fmt.Errorf("%w: %v", model.ErrMalformedResponse, err),
		}
	}
	return nil
}

// DoJSON encodes in as the request body and calls Do.
func (c *Client) DoJSON(ctx context.Context, op, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.NewRequest(ctx, method, path, accessToken, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(op, req, out)
}

// ErrorFromResponse converts a non-2xx response into a *model.RemoteError
// carrying the server's {"error": "..."} message, or a generic message
// when the body cannot be parsed.
func ErrorFromResponse(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := firstNonEmpty(body.Error, body.Msg); msg != "" {
			return &model.RemoteError{Op: op, Status: resp.StatusCode, Message: msg}
		}
	}

	return &model.RemoteError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("Request failed with status %d", resp.StatusCode),
		Err:     model.ErrMalformedResponse,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
