// Package remote talks to the remote entry store: a per-field,
// last-write-wins partial update API keyed by day. The engine only cares
// about two things here: the update result, and whether a failure was a
// connectivity problem (retry via the offline queue) or a semantic one
// (surface to the caller).
package remote

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
	"strings"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/journal"
)

// UpdateResult is the remote store's answer to a partial update.
type UpdateResult struct {
	// UpdatedFields lists the field names the server actually applied.
	UpdatedFields []string `json:"updated_fields"`

	// Entry is the resulting canonical record, if the server returns
	// one. When nil, the caller advances its baseline optimistically.
	Entry journal.Fields `json:"entry"`
}

// Client sends partial updates for one day's entry.
//
// Update must be idempotent per field: re-sending the same payload after
// a timeout is a correctness requirement, not a convenience.
type Client interface {
	Update(ctx context.Context, day journal.DayKey, payload journal.Fields) (*UpdateResult, error)
}

// APIError is a semantic rejection from the remote store, e.g. a field
// value failing server-side validation. It is never retried
// automatically.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return e.Message
}

// IsNetworkError reports whether err is a connectivity-class failure:
// a transport-level error (refused connection, timeout, DNS) or a
// gateway-unavailable status. These are recovered through the offline
// queue instead of being shown to the user.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPClient implements Client over the entry store's JSON API.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
}

// NewHTTPClient creates a client for the entry store at baseURL.
// The request timeout belongs to the transport; the engine never
// imposes its own deadline.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Update implements Client. It PATCHes the subset of fields in payload
// to /api/entries/{day}; fields absent from the payload are never
// clobbered server-side.
func (c *HTTPClient) Update(ctx context.Context, day journal.DayKey, payload journal.Fields) (*UpdateResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/entries/%s", c.baseURL, day)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}

	var result UpdateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}
	return &result, nil
}

// readAPIError extracts the server's error message, falling back to the
// raw body when it isn't the expected {"error": ...} shape.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
