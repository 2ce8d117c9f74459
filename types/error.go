package types

import (
	"encoding/json"
	"fmt"
)

// Canonical error codes reported by the Async Agent API.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
	CodeUnavailable     = "unavailable"
)

// Error represents a failure reported by the Async Agent API. It is decoded
// from the error envelope carried by non-2xx responses and doubles as the
// failure detail embedded in failed runs and error events.
type Error struct {
	// Status is the HTTP status code of the response that produced the
	// error. Zero when the error was embedded in a run or event body.
	Status int `json:"-"`
	// Code is the canonical machine-readable error code.
	Code string `json:"code"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Details carries optional structured error context.
	Details json.RawMessage `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("asyncagent: %s (%s, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("asyncagent: %s (%s)", e.Message, e.Code)
}

// HTTPStatus returns the HTTP status associated with the error. The retry
// package uses it to classify transient failures.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// errorEnvelope is the wire wrapper carried by non-2xx responses.
type errorEnvelope struct {
	Error *Error `json:"error"`
}

// DecodeError builds an *Error from a non-2xx response body. When the body
// is not a recognizable error envelope the status code and raw body are
// used so the caller never loses the failure.
func DecodeError(status int, body []byte) *Error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		env.Error.Status = status
		if env.Error.Code == "" {
			env.Error.Code = codeForStatus(status)
		}
		return env.Error
	}
	msg := string(body)
	if msg == "" {
		msg = fmt.Sprintf("http status %d", status)
	}
	return &Error{Status: status, Code: codeForStatus(status), Message: msg}
}

func codeForStatus(status int) string {
	switch status {
	case 400:
		return CodeInvalidArgument
	case 401:
		return CodeUnauthorized
	case 403:
		return CodeForbidden
	case 404:
		return CodeNotFound
	case 409:
		return CodeConflict
	case 429:
		return CodeRateLimited
	case 502, 503, 504:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}
