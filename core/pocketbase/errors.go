package pocketbase

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when the requested collection does not exist remotely.
var ErrNotFound = errors.New("collection not found")

// APIError is a non-2xx answer from the remote.
type APIError struct {
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Message is the remote's error message, or the truncated body when it sent none.
	Message string `json:"message"`
	// Data holds per-key validation details when the remote provides them.
	Data map[string]any `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("remote returned %d: %s", e.Status, e.Message)
	if len(e.Data) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	details := make([]string, 0, len(keys))
	for _, k := range keys {
		details = append(details, k+": "+detailMessage(e.Data[k]))
	}
	return msg + " (" + strings.Join(details, "; ") + ")"
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// detailMessage flattens one entry of the validation data map.
func detailMessage(v any) string {
	if m, ok := v.(map[string]any); ok {
		if s, ok := m["message"].(string); ok {
			return s
		}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// newAPIError builds an APIError from a response body.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = truncate(body)
	}
	apiErr.Status = status
	return apiErr
}

// truncate keeps error bodies short so credentials echoed by a proxy do not end up in logs.
func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "... (truncated)"
	}
	return s
}
