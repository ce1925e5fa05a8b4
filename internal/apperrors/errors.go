package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrInvalidInput indicates a malformed date or range supplied by a caller.
var ErrInvalidInput = errors.New("invalid input")

// ErrSourceUnavailable indicates a network or transport failure while talking to the rate source.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrMalformedDocument indicates the fetched document has no recognizable structure or date.
var ErrMalformedDocument = errors.New("malformed document")

// ErrCurrencyNotFound indicates the requested currency is absent from the fetched document.
var ErrCurrencyNotFound = errors.New("currency not found in document")

// ErrMalformedRate indicates a rate value that is not a finite positive number.
var ErrMalformedRate = errors.New("malformed rate")

// ErrStorageUnavailable indicates a connection, query or write failure in the rate store.
var ErrStorageUnavailable = errors.New("storage unavailable")

// AppError carries an HTTP-ish status code, a message and the underlying cause.
// Kind is the sentinel the error belongs to (ErrNotFound, ErrStorageUnavailable, ...).
type AppError struct {
	Code    int
	Message string
	Kind    error
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewAppError creates an AppError. The kind is derived from the code.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Kind: kindForCode(code), Err: err}
}

// NewNotFoundError creates a 404 AppError that matches ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Kind: ErrNotFound}
}

// NewValidationError creates a 400 AppError that matches ErrValidation.
func NewValidationError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Kind: ErrValidation}
}

// NewStorageError creates a 503 AppError that matches ErrStorageUnavailable.
func NewStorageError(message string, err error) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: message, Kind: ErrStorageUnavailable, Err: err}
}

// IsRetryable reports whether an ingestion attempt failing with err may be retried.
// Structural parse failures are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedDocument) || errors.Is(err, ErrCurrencyNotFound) || errors.Is(err, ErrMalformedRate) {
		return false
	}
	return errors.Is(err, ErrSourceUnavailable)
}

func kindForCode(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		return ErrStorageUnavailable
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrSourceUnavailable
	default:
		return nil
	}
}
