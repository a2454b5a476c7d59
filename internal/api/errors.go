package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
	"github.com/forgeapp/forge-server/internal/http/response"
	"github.com/forgeapp/forge-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler(logger *slog.Logger) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromError(err); apiErr != nil {
				return apiErr
			}
		}

		if status >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed", "status", status, "error", errors.Join(errs...))
			message = "internal server error"
		}

		// Schema validation failures share the 400 of domain validation.
		var details any
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			status = http.StatusBadRequest
			if d := fieldDetails(errs); d != nil {
				details = d
			}
		}

		return &APIError{
			status:  status,
			Code:    response.CodeForStatus(status),
			Message: message,
			Details: details,
		}
	}
}

// fromError maps domain and store errors. Other errors return nil.
func fromError(err error) *APIError {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    response.CodeForStatus(storeErr.HTTPCode()),
			Message: storeErr.Message,
		}
	}
	return nil
}

// fieldDetails turns huma's schema validation errors into a location ->
// message map, the shape domain validation errors use.
func fieldDetails(errs []error) map[string]string {
	var details map[string]string
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !errors.As(err, &detail) {
			continue
		}
		if details == nil {
			details = make(map[string]string)
		}
		details[detail.Location] = detail.Message
	}
	return details
}
