package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Dataset errors
	ErrEmptyDataset      = errors.New("dataset contains no observations")
	ErrUnsortedIndex     = errors.New("dataset index must be monotonically increasing")
	ErrDuplicateColumn   = errors.New("dataset column names must be unique")
	ErrColumnLengthsVary = errors.New("dataset columns must have equal length")
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnivariateOnly    = errors.New("operation supports univariate datasets only")
	ErrInsufficientData  = errors.New("insufficient data for the requested operation")

	// Split errors
	ErrCutoffOutOfRange = errors.New("cutoff leaves an empty train or test slice")
	ErrNotSplit         = errors.New("dataset has not been split yet")
	ErrInvalidFolds     = errors.New("number of folds must be at least 2")

	// Model errors
	ErrNotFitted             = errors.New("model must be fitted before prediction")
	ErrMissingSearchSpace    = errors.New("grid search requested without a search space")
	ErrSearchUnsupported     = errors.New("model does not support grid search")
	ErrNoPredictions         = errors.New("no predictions have been computed")
	ErrAggregatedNotComputed = errors.New("no predictions have been computed with the aggregated model")

	// Statistical test errors
	ErrUnknownTest     = errors.New("unknown statistical test")
	ErrUnknownTestKind = errors.New("unknown statistical test kind")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing configuration")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeDataset       ErrorType = "dataset"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeStatTest      ErrorType = "stat_test"
	ErrorTypeVisualization ErrorType = "visualization"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewDatasetError creates a dataset error
func NewDatasetError(code, message string) *AppError {
	return NewAppError(ErrorTypeDataset, code, message)
}

// NewModelError creates a model error
func NewModelError(code, message string) *AppError {
	return NewAppError(ErrorTypeModel, code, message)
}

// NewConfigError creates a configuration error
func NewConfigError(code, message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, "INTERNAL_ERROR", message)
}

// Error codes for different error scenarios
const (
	// Dataset error codes
	CodeEmptyDataset     = "EMPTY_DATASET"
	CodeUnsortedIndex    = "UNSORTED_INDEX"
	CodeDuplicateColumn  = "DUPLICATE_COLUMN"
	CodeColumnMismatch   = "COLUMN_MISMATCH"
	CodeColumnNotFound   = "COLUMN_NOT_FOUND"
	CodeUnivariateOnly   = "UNIVARIATE_ONLY"
	CodeInsufficientData = "INSUFFICIENT_DATA"

	// Split error codes
	CodeCutoffOutOfRange = "CUTOFF_OUT_OF_RANGE"
	CodeNotSplit         = "NOT_SPLIT"
	CodeInvalidFolds     = "INVALID_FOLDS"

	// Model error codes
	CodeNotFitted          = "NOT_FITTED"
	CodeFitFailed          = "FIT_FAILED"
	CodePredictFailed      = "PREDICT_FAILED"
	CodeMissingSearchSpace = "MISSING_SEARCH_SPACE"
	CodeSearchUnsupported  = "SEARCH_UNSUPPORTED"
	CodeNoPredictions      = "NO_PREDICTIONS"
	CodeAggregatedMissing  = "AGGREGATED_NOT_COMPUTED"

	// Statistical test error codes
	CodeUnknownTest     = "UNKNOWN_TEST"
	CodeUnknownTestKind = "UNKNOWN_TEST_KIND"

	// Configuration error codes
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeMissingConfiguration = "MISSING_CONFIGURATION"

	// Internal error codes
	CodeInternalError = "INTERNAL_ERROR"
)
