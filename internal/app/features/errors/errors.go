// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/authz"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	NeedsReauth bool   `json:"needsReauth,omitempty"`
}

// ErrorLogger writes JSON error responses and logs them with request context.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// LogBadRequest answers 400 with msg. err, if any, is logged but not sent.
func (el *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	el.log.Info("bad request", el.fields(r, err)...)
	WriteJSON(w, http.StatusBadRequest, Body{Error: "bad_request", Message: msg})
}

// LogConflict answers 409 with msg.
func (el *ErrorLogger) LogConflict(w http.ResponseWriter, r *http.Request, msg string, err error) {
	el.log.Info("conflict", el.fields(r, err)...)
	WriteJSON(w, http.StatusConflict, Body{Error: "conflict", Message: msg})
}

// LogServerError answers 500 with a generic message.
func (el *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	el.log.Error(msg, el.fields(r, err)...)
	WriteJSON(w, http.StatusInternalServerError, Body{Error: "server_error", Message: "Something went wrong."})
}

// LogUpstream answers for a failed backend call, choosing the status from
// the failure kind.
func (el *ErrorLogger) LogUpstream(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	fields := append(el.fields(r, err), zap.String("op", op), zap.Int("status", status))
	if status >= 500 {
		el.log.Warn("backend call failed", fields...)
	} else {
		el.log.Info("backend call rejected", fields...)
	}
	WriteJSON(w, status, Body{
		Error:       codeFor(status),
		Message:     apiclient.Message(err),
		NeedsReauth: apiclient.IsAuth(err),
	})
}

// StatusFor maps a backend failure onto the status returned to the browser.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case apiclient.IsAuth(err):
		return http.StatusUnauthorized
	case apiclient.IsValidation(err):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, apiclient.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusUnprocessableEntity:
		return "rejected"
	case http.StatusBadGateway:
		return "backend_unavailable"
	default:
		return "server_error"
	}
}

// NotFound is the router's 404 handler.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{Error: "not_found"})
}

// MethodNotAllowed is the router's 405 handler.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: "method_not_allowed"})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (el *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	_, _, userID, _ := authz.UserCtx(r)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("user_id", userID),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}
