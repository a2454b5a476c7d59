// Package response writes the JSON envelope used by every Forge API response.
// Huma operations get it through the API transformer; plain chi handlers
// such as the event stream and the not-found route write it directly.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/store"
)

// Version is the envelope format version sent as "v".
const Version = 1

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	V       int        `json:"v"`
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success wraps data in a successful envelope.
func Success(data any) Envelope {
	return Envelope{V: Version, Success: true, Data: data}
}

// Failure wraps an error body in a failed envelope.
func Failure(body ErrorBody) Envelope {
	return Envelope{V: Version, Success: false, Error: &body}
}

// JSON writes data in a successful envelope.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Success(data), logger)
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	write(w, status, Failure(ErrorBody{Code: code, Message: message}), logger)
}

// HandleError writes the response for err. Domain and store errors keep
// their status; anything else is a 500 with a generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		write(w, domainErr.HTTPStatus(), Failure(ErrorBody{
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}), logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		Error(w, storeErr.HTTPCode(), CodeForStatus(storeErr.HTTPCode()), storeErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, string(domainerrors.CodeInternal), "internal server error", logger)
}

// CodeForStatus maps an HTTP status to the error code clients see.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return string(domainerrors.CodeInternal)
	}
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}
