package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	"admissionscheduling/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeUnprocessable = "unprocessable"
	ErrCodeInternalError = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// domainStatus maps a domain sentinel to its HTTP status and error code.
// Unrecognized errors map to 500 internal_error; callers should log those.
func domainStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrWrongCapacityModel):
		return http.StatusUnprocessableEntity, ErrCodeUnprocessable
	case errors.Is(err, domain.ErrSlotUnavailable),
		errors.Is(err, domain.ErrAlreadyBooked),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrAlreadyInvited),
		errors.Is(err, domain.ErrAlreadyResponded),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// WriteDomainError maps a service error to the response envelope.
// Returns true when the error was a recognized domain sentinel; false
// means it was written as a 500 and the caller should log it.
func WriteDomainError(w http.ResponseWriter, err error) bool {
	status, code := domainStatus(err)
	WriteJSONError(w, status, code, err.Error())
	return status != http.StatusInternalServerError
}
