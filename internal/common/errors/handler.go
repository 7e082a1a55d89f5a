// internal/common/errors/handler.go
package errors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an engine error to the status code the API returns.
// Business failures keep their 4xx shape; store failures are always 503.
func HTTPStatus(err error) int {
	var el *EligibilityError
	if errors.As(err, &el) {
		switch el.Code {
		case ErrCodePostingNotFound:
			return http.StatusNotFound
		case ErrCodeDuplicateApplication, ErrCodeQuotaExceeded,
			ErrCodeNoCapacity, ErrCodeDeadlinePassed:
			return http.StatusConflict
		}
	}

	var ad *AdmissionError
	if errors.As(err, &ad) {
		switch ad.Code {
		case ErrCodeApplicationNotFound:
			return http.StatusNotFound
		case ErrCodeInvalidTransition:
			return http.StatusUnprocessableEntity
		case ErrCodeAlreadyAdmittedSameOrg, ErrCodeAlreadyAcceptedElsewhere:
			return http.StatusConflict
		}
	}

	var se *StoreError
	if errors.As(err, &se) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// Body renders an engine error as the JSON payload the API responds with.
func Body(err error) map[string]interface{} {
	var el *EligibilityError
	if errors.As(err, &el) {
		return map[string]interface{}{
			"code":    el.Code,
			"message": el.Message,
			"details": el.Details,
		}
	}

	var ad *AdmissionError
	if errors.As(err, &ad) {
		return map[string]interface{}{
			"code":    ad.Code,
			"message": ad.Message,
			"details": ad.Details,
		}
	}

	var se *StoreError
	if errors.As(err, &se) {
		return map[string]interface{}{
			"code":    ErrCodeStoreUnavailable,
			"message": "Storage backend unavailable",
		}
	}

	return map[string]interface{}{
		"code":    "INTERNAL_ERROR",
		"message": "Unexpected error",
	}
}
