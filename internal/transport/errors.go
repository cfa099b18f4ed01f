package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is a structured failure returned by the backend: the HTTP status,
// an optional machine code, and an optional field-level error map.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// Unauthorized reports whether the backend rejected the access credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AsAPIError unwraps err into an *APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// The backend wraps failures as {"error": <payload>} where payload is either
// a plain message, a field error map, or {code, message, fields}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		return apiErr
	}

	// Plain message form
	var msg string
	if err := json.Unmarshal(env.Error, &msg); err == nil {
		apiErr.Message = msg
		return apiErr
	}

	// Structured form with explicit code
	var detail errorDetail
	if err := json.Unmarshal(env.Error, &detail); err == nil && (detail.Code != "" || detail.Message != "" || len(detail.Fields) > 0) {
		apiErr.Code = detail.Code
		apiErr.Message = detail.Message
		apiErr.Fields = detail.Fields
		return apiErr
	}

	// Bare field map form (validation failures)
	var fields map[string]string
	if err := json.Unmarshal(env.Error, &fields); err == nil {
		apiErr.Fields = fields
	}

	return apiErr
}
