// Package errors defines the sentinel errors shared across the scoring
// service, the ConfigurationError raised by the scoring core, and the mapping
// from errors to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrUnknownAlgorithm   = errors.New("unknown algorithm")
	ErrMissingParent      = errors.New("missing parent document or collection")
	ErrInvalidOption      = errors.New("invalid option")
	ErrUnknownMethod      = errors.New("unknown method")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

// ConfigKind distinguishes the causes of a ConfigurationError.
type ConfigKind int

const (
	UnknownAlgorithm ConfigKind = iota
	MissingParent
	InvalidOption
	UnknownMethod
)

func (k ConfigKind) String() string {
	switch k {
	case UnknownAlgorithm:
		return "unknown_algorithm"
	case MissingParent:
		return "missing_parent"
	case InvalidOption:
		return "invalid_option"
	case UnknownMethod:
		return "unknown_method"
	default:
		return "unknown"
	}
}

// sentinel returns the sentinel error matching the kind.
func (k ConfigKind) sentinel() error {
	switch k {
	case UnknownAlgorithm:
		return ErrUnknownAlgorithm
	case MissingParent:
		return ErrMissingParent
	case InvalidOption:
		return ErrInvalidOption
	case UnknownMethod:
		return ErrUnknownMethod
	default:
		return ErrConfiguration
	}
}

// ConfigurationError is returned when a caller asks for something the scoring
// core cannot be configured to do. Family and Name identify the offending
// algorithm family (or option key) and the requested value.
type ConfigurationError struct {
	Kind    ConfigKind
	Family  string
	Name    string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Message)
}

// Unwrap lets errors.Is match both ErrConfiguration and the kind sentinel.
func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Kind.sentinel()}
}

// UnknownAlgorithmError reports an algorithm name not registered for family.
func UnknownAlgorithmError(family, name string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    UnknownAlgorithm,
		Family:  family,
		Name:    name,
		Message: fmt.Sprintf("the specified algorithm %q to calculate %s does not exist", name, family),
	}
}

// MissingParentError reports a term query without a document or collection.
func MissingParentError() *ConfigurationError {
	return &ConfigurationError{
		Kind:    MissingParent,
		Message: "tf*idf requires a collection with documents",
	}
}

// InvalidOptionError reports an option value outside its accepted range.
func InvalidOptionError(key string, value any, reason string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    InvalidOption,
		Family:  key,
		Name:    fmt.Sprint(value),
		Message: fmt.Sprintf("option %s=%v: %s", key, value, reason),
	}
}

// UnknownMethodError reports a capability lookup miss.
func UnknownMethodError(category, method string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    UnknownMethod,
		Family:  category,
		Name:    method,
		Message: fmt.Sprintf("no %s worker registered under %q", category, method),
	}
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrCollectionNotFound), errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
