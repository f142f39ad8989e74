package gateway

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/exam-client/internal/errors"
)

// ===== GATEWAY ERRORS =====

var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrSubmissionClosed is the late-submission case: the server reports
	// the submission window has already expired. Terminal, no retry.
	ErrSubmissionClosed = errors.New("submission window already closed")
)

// NetworkError wraps transport-level failures and server faults. Retryable:
// the caller may re-trigger submit explicitly, which is safe because of the
// exactly-once guard in the session controller.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a structured rejection from the collaborator service. When
// the server provides field details they are surfaced per field, otherwise
// Message stands alone.
type APIError struct {
	StatusCode int                        `json:"status_code"`
	Message    string                     `json:"message"`
	Code       string                     `json:"code,omitempty"`
	Details    apperrors.ValidationErrors `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("server rejected request (%d): %s (%s)", e.StatusCode, e.Message, e.Details.Error())
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// ===== ERROR HELPERS =====

// IsNetwork checks if error represents a retryable transport failure
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsValidation checks if error represents a server-side payload rejection
func IsValidation(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsLateSubmission checks if error represents an expired submission window
func IsLateSubmission(err error) bool {
	return errors.Is(err, ErrSubmissionClosed)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExamNotFound) || errors.Is(err, ErrSubmissionNotFound)
}
