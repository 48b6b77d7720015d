package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "worktrack/internal/platform/errors"
)

// Error codes carried in the JSON error body of the worktrack API.
const (
	CodeConflict      = "conflict"
	CodeNotFound      = "not_found"
	CodeSessionClosed = "session_closed"
	CodeInvalidInput  = "invalid_input"
	CodeInternal      = "internal"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	DurationSec int64  `json:"duration_sec,omitempty"`
}

// Client talks JSON to a worktrack server. It never retries; transport
// failures and 5xx responses wrap apperrors.ErrTransient.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// StatusError is returned for non-2xx responses after mapping the code to a
// sentinel; Body keeps the decoded payload for callers that need extra fields.
type StatusError struct {
	Status int
	Body   ErrorBody
	err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Body.Error)
}

func (e *StatusError) Unwrap() error { return e.err }

// Do sends body as JSON and decodes a 2xx response into out when out is not
// nil. It returns the HTTP status for callers that distinguish 200 and 204.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return 0, err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %v", apperrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return resp.StatusCode, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	decoded := ErrorBody{}
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.Error == "" {
		decoded.Error = strings.TrimSpace(string(raw))
	}
	c.log.Debug("remote error response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("code", decoded.Code),
	)
	return resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: decoded, err: sentinelFor(resp.StatusCode, decoded.Code)}
}

func sentinelFor(status int, code string) error {
	switch code {
	case CodeConflict:
		return apperrors.ErrActiveSessionExists
	case CodeSessionClosed:
		return apperrors.ErrSessionClosed
	case CodeNotFound:
		return apperrors.ErrNotFound
	case CodeInvalidInput:
		return apperrors.ErrInvalidInput
	}
	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case status == http.StatusConflict:
		return apperrors.ErrActiveSessionExists
	case status >= 500:
		return apperrors.ErrTransient
	default:
		return errors.New(http.StatusText(status))
	}
}
