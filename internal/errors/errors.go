package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// CodeValidationFailed is the error_code of a rejected request
const CodeValidationFailed = "VALIDATION_FAILED"

// APIError is an error raised by the HTTP layer itself, before any
// service runs, with the status it should be answered with
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// ValidationError describes one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a failed validation
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// NewValidationErrors rejects a request for one or more fields. The
// message names every field so it reads well without the details.
func NewValidationErrors(errs []ValidationError) *APIError {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  CodeValidationFailed,
		Message:    fmt.Sprintf("invalid request parameters: %s", strings.Join(fields, ", ")),
		Details:    ValidationErrors{Errors: errs},
	}
}
