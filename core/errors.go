package core

import "github.com/pkg/errors"

// ErrorCode is the machine-readable kind of a business error.
type ErrorCode string

const (
	CodeInternal           ErrorCode = "internal"
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeNotEnrolled        ErrorCode = "not_enrolled"
	CodeInvalidChapterKind ErrorCode = "invalid_chapter_kind"
	CodeConflict           ErrorCode = "conflict"
	CodeNotComplete        ErrorCode = "not_complete"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// Error is a business error of a known kind.
// Packages declare their sentinels with NewError and callers match them with errors.Cause.
type Error struct {
	Code ErrorCode
	msg  string
}

func NewError(code ErrorCode, msg string) error {
	return &Error{Code: code, msg: msg}
}

func (err *Error) Error() string {
	return err.msg
}

// Code returns the ErrorCode of err, CodeInternal for unknown errors.
func Code(err error) ErrorCode {
	switch e := errors.Cause(err).(type) {
	case nil:
		return ""
	case *Error:
		return e.Code
	case *ValidationError:
		return CodeValidation
	default:
		return CodeInternal
	}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
