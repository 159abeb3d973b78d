package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. ErrConversionFailed is recoverable: the pipeline
// degrades to a no-preview run on the original bytes. The others surface to
// the caller verbatim; every retry is user-initiated.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrConversionFailed    = errors.New("image conversion failed")
	ErrExtractionFailed    = errors.New("text extraction failed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrExportFailed        = errors.New("export failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
