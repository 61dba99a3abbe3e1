package customErrors

import (
	"errors"
	"fmt"
)

const (
	ErrNotFound     = "NOT FOUND"
	ErrInvalidInput = "INVALID INPUT"
	ErrAuth         = "UNAUTHORIZED"
	ErrConflict     = "CONFLICT"
	ErrInternal     = "INTERNAL"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
}

// Is makes errors.Is match any ErrorResponse carrying the same code.
func (e ErrorResponse) Is(target error) bool {
	var t ErrorResponse
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func New(code string, message string) error {
	return ErrorResponse{Code: code, Message: message}
}

func Newf(code string, format string, args ...any) error {
	return ErrorResponse{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first ErrorResponse in err's chain, or
// ErrInternal when there is none.
func CodeOf(err error) string {
	var resp ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code
	}
	return ErrInternal
}

// MessageOf returns the user facing message of err. Errors without a code are
// reported with a generic message so internals do not leak.
func MessageOf(err error) string {
	var resp ErrorResponse
	if errors.As(err, &resp) {
		return resp.Message
	}
	return "Something went wrong, try again later."
}

func IsNotFound(err error) bool     { return CodeOf(err) == ErrNotFound }
func IsInvalidInput(err error) bool { return CodeOf(err) == ErrInvalidInput }
func IsAuth(err error) bool         { return CodeOf(err) == ErrAuth }
func IsConflict(err error) bool     { return CodeOf(err) == ErrConflict }
