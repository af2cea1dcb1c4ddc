// internal/app/system/apiclient/errors.go
package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Every error returned by Client wraps exactly one of these,
// so callers can branch with errors.Is.
var (
	// ErrNetwork covers transport failures, timeouts, undecodable responses
	// and backend statuses that are not auth or validation rejections.
	ErrNetwork = errors.New("network failure")
	// ErrAuth covers 401/403 responses and calls made without a token.
	ErrAuth = errors.New("authentication failure")
	// ErrValidation covers payloads the backend rejected (400, 409, 422).
	ErrValidation = errors.New("validation failure")
)

// ErrNoToken is reported (wrapped in an ErrAuth Error) when the session has
// no bearer token at the moment of the request.
var ErrNoToken = errors.New("no bearer token in session")

// Error describes a failed backend call.
type Error struct {
	Op      string // logical operation, e.g. "users.list"
	Method  string
	Path    string
	Status  int    // HTTP status, 0 if no response was received
	Message string // message extracted from the backend response, if any
	Kind    error  // one of ErrNetwork, ErrAuth, ErrValidation
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s %s: %d %s", e.Op, e.Method, e.Path, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s %s: %d %s", e.Op, e.Method, e.Path, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.Path, e.Kind)
	}
}

// Unwrap exposes both the failure kind and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsAuth reports whether err is an authentication failure, meaning the user
// has to sign in again.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsValidation reports whether the backend rejected the submitted payload.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// Message returns a short, user-presentable description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrValidation):
		return "The server rejected the submitted data."
	default:
		return "The server could not be reached. Please try again."
	}
}

// kindForStatus maps a non-2xx status onto a failure kind.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

// outcomeLabel is the metrics label for an error's kind.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "network"
	}
}
