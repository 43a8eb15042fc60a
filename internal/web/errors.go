package web

// errors.go turns handler errors into responses.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err), optionally with an explicit status
//  3. The status is derived from the error unless given
//  4. Error is mapped via core.MapError to get a user-friendly message
//  5. Technical error is logged with the request ID for correlation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/logging"
	"github.com/JonMunkholm/regconv/internal/registry"
	"github.com/JonMunkholm/regconv/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile         = errors.New("no file provided")
	errNoStore        = errors.New("persistence not configured")
	errInvalidRequest = errors.New("invalid parameter")
)

// respondError logs err and writes a user-facing error response.
// A zero status is derived from err with statusFor.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if !wantsJSON(r) {
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
		return
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, errNoFile),
		errors.Is(err, errInvalidRequest),
		errors.Is(err, codec.ErrUnknownEncoding),
		errors.Is(err, registry.ErrUnknownField),
		errors.Is(err, registry.ErrDuplicateField),
		errors.Is(err, registry.ErrFieldCount):
		return http.StatusBadRequest
	case strings.Contains(err.Error(), "invalid csv"):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// wantsJSON checks if the client prefers a JSON response.
// API routes always get JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
