package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"fooddelivery/internal/domain/policy"
)

// エラーの種類（クライアントが出し分けに使う）
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInactiveItem ErrorKind = "INACTIVE_ITEM"
	KindEligibility  ErrorKind = "ELIGIBILITY"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindConflict     ErrorKind = "CONFLICT"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindInternal     ErrorKind = "INTERNAL"
)

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string

	//割引が使えない理由（ELIGIBILITYのとき）
	Reason         policy.EligibilityReason
	MinOrderAmount int64
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Kind:    kindForStatus(status),
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindInactiveItem
	default:
		return KindInternal
	}
}

func validationError(msg string) error {
	return &HTTPError{Status: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func notFoundError(msg string) error {
	return &HTTPError{Status: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func inactiveItemError(msg string) error {
	return &HTTPError{Status: http.StatusUnprocessableEntity, Kind: KindInactiveItem, Message: msg}
}

func forbiddenError(msg string) error {
	return &HTTPError{Status: http.StatusForbidden, Kind: KindForbidden, Message: msg}
}

func conflictError(msg string) error {
	return &HTTPError{Status: http.StatusConflict, Kind: KindConflict, Message: msg}
}

func unauthorizedError() error {
	return &HTTPError{Status: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "unauthorized"}
}

func dbError() error {
	return &HTTPError{Status: http.StatusInternalServerError, Kind: KindInternal, Message: "db error"}
}

// 存在しないコードはNOT_FOUNDとして返す
func eligibilityError(ee *policy.EligibilityError) error {
	if ee.Reason == policy.ReasonNotFound {
		return &HTTPError{
			Status:  http.StatusNotFound,
			Kind:    KindNotFound,
			Message: ee.Error(),
			Reason:  ee.Reason,
		}
	}
	return &HTTPError{
		Status:         http.StatusUnprocessableEntity,
		Kind:           KindEligibility,
		Message:        ee.Error(),
		Reason:         ee.Reason,
		MinOrderAmount: ee.MinOrderAmount,
	}
}
