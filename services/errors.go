package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindExpired             ErrorKind = "expired"
	KindAuthRequired        ErrorKind = "auth_required"
	KindAuthInvalid         ErrorKind = "auth_invalid"
	KindValidation          ErrorKind = "validation"
	KindConsistency         ErrorKind = "consistency"
	KindPartialBatchFailure ErrorKind = "partial_batch_failure"
	KindConfiguration       ErrorKind = "configuration"
	KindRateLimited         ErrorKind = "rate_limited"
	KindInternal            ErrorKind = "internal"
)

var kindHTTPCodes = map[ErrorKind]int{
	KindNotFound:            http.StatusNotFound,
	KindExpired:             http.StatusGone,
	KindAuthRequired:        http.StatusUnauthorized,
	KindAuthInvalid:         http.StatusUnauthorized,
	KindValidation:          http.StatusBadRequest,
	KindConsistency:         http.StatusInternalServerError,
	KindPartialBatchFailure: http.StatusMultiStatus,
	KindConfiguration:       http.StatusInternalServerError,
	KindRateLimited:         http.StatusTooManyRequests,
	KindInternal:            http.StatusInternalServerError,
}

type AppError struct {
	HTTPCode int
	Kind     ErrorKind
	Message  string
	Data     interface{}
	Err      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newAppError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{HTTPCode: httpCodeFor(kind), Kind: kind, Message: message, Err: err}
}

func newAppErrorWithData(kind ErrorKind, message string, data interface{}, err error) *AppError {
	return &AppError{HTTPCode: httpCodeFor(kind), Kind: kind, Message: message, Data: data, Err: err}
}

func httpCodeFor(kind ErrorKind) int {
	if code, ok := kindHTTPCodes[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// ConsistencyData is attached to consistency errors so an operator can find
// the intent record left behind.
type ConsistencyData struct {
	IntentID string `json:"intent_id"`
	FileID   string `json:"file_id"`
}

func newConsistencyError(intentID, fileID string, err error) *AppError {
	return newAppErrorWithData(KindConsistency,
		"blob store and metadata are out of sync",
		ConsistencyData{IntentID: intentID, FileID: fileID}, err)
}

// KindOf returns the kind of the first AppError in err's chain. Plain errors
// are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// lookupError maps a repository lookup failure to not_found or internal.
func lookupError(err error, notFoundMessage string, failMessage string) *AppError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newAppError(KindNotFound, notFoundMessage, nil)
	}
	return newAppError(KindInternal, failMessage, err)
}
