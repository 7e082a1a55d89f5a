// internal/common/errors/errors.go
// Package errors defines the business error taxonomy of the admission engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Eligibility failures (application submission).
const (
	ErrCodePostingNotFound      ErrorCode = "POSTING_NOT_FOUND"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeQuotaExceeded        ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeNoCapacity           ErrorCode = "NO_CAPACITY"
	ErrCodeDeadlinePassed       ErrorCode = "DEADLINE_PASSED"
)

// Admission failures (status transitions).
const (
	ErrCodeApplicationNotFound      ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidTransition        ErrorCode = "INVALID_TRANSITION"
	ErrCodeAlreadyAdmittedSameOrg   ErrorCode = "ALREADY_ADMITTED_SAME_ORG"
	ErrCodeAlreadyAcceptedElsewhere ErrorCode = "ALREADY_ACCEPTED_ELSEWHERE"
)

// Infrastructure failures. These never map onto the business taxonomy.
const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// EligibilityError is an expected, recoverable-by-caller outcome of
// submitting an application. It is a typed result, not a defect.
type EligibilityError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("EligibilityError[%s]: %s", e.Code, e.Message)
}

// AdmissionError is an expected outcome of a status-transition request.
type AdmissionError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("AdmissionError[%s]: %s", e.Code, e.Message)
}

// StoreError wraps a durable-store failure. Always retryable, always
// surfaced as an internal error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("StoreError[%s]: %s: %v", ErrCodeStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with the operation that hit the store.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// ==========================
// Eligibility constructors
// ==========================

func NewPostingNotFoundError(postingID string) *EligibilityError {
	return &EligibilityError{
		Code:      ErrCodePostingNotFound,
		Message:   "Posting not found or not open",
		Details:   fmt.Sprintf("postingId: %s", postingID),
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateApplicationError(applicantID, postingID string) *EligibilityError {
	return &EligibilityError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Application already exists for this posting",
		Details:   fmt.Sprintf("applicantId: %s, postingId: %s", applicantID, postingID),
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaExceededError reports the applicant's current count at the
// organization; the message carries both so the caller can show them.
func NewQuotaExceededError(count int, orgName string) *EligibilityError {
	return &EligibilityError{
		Code:      ErrCodeQuotaExceeded,
		Message:   fmt.Sprintf("You already have %d active applications at %s", count, orgName),
		Details:   fmt.Sprintf("currentCount: %d, organization: %s", count, orgName),
		Timestamp: time.Now().UTC(),
	}
}

func NewNoCapacityError(postingID string) *EligibilityError {
	return &EligibilityError{
		Code:      ErrCodeNoCapacity,
		Message:   "No seats remain on this posting",
		Details:   fmt.Sprintf("postingId: %s", postingID),
		Timestamp: time.Now().UTC(),
	}
}

func NewDeadlinePassedError(postingID string, deadline time.Time) *EligibilityError {
	return &EligibilityError{
		Code:      ErrCodeDeadlinePassed,
		Message:   "Application deadline has passed",
		Details:   fmt.Sprintf("postingId: %s, deadline: %s", postingID, deadline.UTC().Format(time.RFC3339)),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Admission constructors
// ==========================

func NewApplicationNotFoundError(applicationID string) *AdmissionError {
	return &AdmissionError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidTransitionError(from, to string) *AdmissionError {
	return &AdmissionError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("Cannot move application from %s to %s", from, to),
		Timestamp: time.Now().UTC(),
	}
}

func NewAlreadyAdmittedSameOrgError(applicantID, orgName string) *AdmissionError {
	return &AdmissionError{
		Code:      ErrCodeAlreadyAdmittedSameOrg,
		Message:   fmt.Sprintf("Applicant already holds an approved application at %s", orgName),
		Details:   fmt.Sprintf("applicantId: %s", applicantID),
		Timestamp: time.Now().UTC(),
	}
}

func NewAlreadyAcceptedElsewhereError(applicantID string) *AdmissionError {
	return &AdmissionError{
		Code:      ErrCodeAlreadyAcceptedElsewhere,
		Message:   "Applicant has already accepted an offer at another organization",
		Details:   fmt.Sprintf("applicantId: %s", applicantID),
		Timestamp: time.Now().UTC(),
	}
}
