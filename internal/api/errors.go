package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"duck-grouper/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var invalidMode *domain.InvalidGroupModeError
	var badFormat *domain.BadGroupFormatError
	var fieldNotFound *domain.GroupFieldNotFoundError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.As(err, &invalidMode),
		errors.As(err, &badFormat),
		errors.As(err, &fieldNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
