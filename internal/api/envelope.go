package api

import (
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/forgeapp/forge-server/internal/http/response"
)

// EnvelopeTransformer wraps every response body in the versioned envelope:
// {"v":1,"success":true,"data":...} or {"v":1,"success":false,"error":{...}}.
// Domain and store errors returned straight from handlers arrive here
// unconverted and are mapped the same way RegisterErrorHandler maps them.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	switch body := v.(type) {
	case *APIError:
		return failure(body), nil
	case error:
		if apiErr := fromError(body); apiErr != nil {
			return failure(apiErr), nil
		}
		return response.Failure(response.ErrorBody{
			Code:    response.CodeForStatus(code),
			Message: "internal server error",
		}), nil
	}

	if code >= http.StatusBadRequest {
		return response.Failure(response.ErrorBody{Code: response.CodeForStatus(code)}), nil
	}
	return response.Success(v), nil
}

func failure(apiErr *APIError) response.Envelope {
	body := response.ErrorBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
	if apiErr.status >= http.StatusInternalServerError {
		body.Message = "internal server error"
		body.Details = nil
	}
	return response.Failure(body)
}
