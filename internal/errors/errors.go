package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so that a wrapped ErrToolMissing still satisfies
// errors.Is(err, ErrToolMissing).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrMalformedInput    = &AppError{Code: "EXTRACT_001", Message: "malformed document"}
	ErrUnsupportedFormat = &AppError{Code: "EXTRACT_002", Message: "unsupported document format"}
	ErrExtractorPanic    = &AppError{Code: "EXTRACT_003", Message: "extractor panicked"}
	ErrNoText            = &AppError{Code: "EXTRACT_004", Message: "no extractable text"}

	ErrRasterize = &AppError{Code: "OCR_001", Message: "page rasterization failed"}
	ErrRecognize = &AppError{Code: "OCR_002", Message: "text recognition failed"}

	ErrToolMissing = &AppError{Code: "TOOL_001", Message: "external tool not installed"}
	ErrToolTimeout = &AppError{Code: "TOOL_002", Message: "external tool timed out"}
	ErrToolFailed  = &AppError{Code: "TOOL_003", Message: "external tool failed"}
	ErrCircuitOpen = &AppError{Code: "TOOL_004", Message: "external tool circuit open"}

	ErrTempCreate = &AppError{Code: "TEMP_001", Message: "temp file create failed"}
	ErrTempRemove = &AppError{Code: "TEMP_002", Message: "temp file remove failed"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithCause returns a copy of a sentinel carrying cause and, if given, a
// more specific message.
func (e *AppError) WithCause(cause error, message ...string) *AppError {
	out := &AppError{Code: e.Code, Message: e.Message, Cause: cause}
	if len(message) > 0 && message[0] != "" {
		out.Message = message[0]
	}
	return out
}
