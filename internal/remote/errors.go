package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
)

// APIError is an explicit non-2xx answer from the HR backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HR API %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HR API %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// Classifier maps a tier failure to the taxonomy the strategy cache cares
// about. The exact boundary depends on the backend's error contract, so
// callers may plug their own.
type Classifier func(err error) model.FailureClass

// DefaultClassifier treats explicit 4xx rejections (permission, validation,
// conflicts) as permanent for the month and everything else, including
// anything it cannot recognize, as transient. A misclassified permanent
// error costs one wasted attempt next time; a misclassified transient one
// would downgrade the account for the rest of the month.
func DefaultClassifier(err error) model.FailureClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity:
			return model.FailurePermission
		}
		return model.FailureTransient
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return model.FailureTransient
	}
	return model.FailureTransient
}
