package glossary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies glossary failures. Conflict, NotFound and Validation are
// surfaced synchronously; the failure codes only ever reach job logs.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation"
	CodeNotFound          ErrorCode = "not_found"
	CodeConflict          ErrorCode = "conflict"
	CodeExtractionFailure ErrorCode = "extraction_failure"
	CodeEmbeddingFailure  ErrorCode = "embedding_failure"
	CodeInternal          ErrorCode = "internal"
)

type Error struct {
	Code    ErrorCode
	Reason  string
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an error with a code and a machine-readable reason such as
// "duplicate_cleaned_text".
func NewError(code ErrorCode, reason, op, message string) error {
	return &Error{Code: code, Reason: reason, Op: op, Message: message}
}

func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: err.Error(), Cause: err}
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) ErrorCode {
	var ge *Error
	if !errors.As(err, &ge) {
		return ""
	}
	return ge.Code
}

func ReasonOf(err error) string {
	var ge *Error
	if !errors.As(err, &ge) {
		return ""
	}
	if ge.Reason != "" {
		return ge.Reason
	}
	return string(ge.Code)
}
