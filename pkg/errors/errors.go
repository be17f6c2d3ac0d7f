package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Generic codes. Domain packages define their own reason codes and pass them
// through the constructors below.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInvalidInput
	KindUnauthorized
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Languages used for the localized message map.
const (
	LangEN = "en"
	LangIT = "it"
)

type AppError struct {
	Kind       Kind              `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Messages   map[string]string `json:"messages,omitempty"`
	HTTPStatus int               `json:"-"`
	Details    map[string]any    `json:"details,omitempty"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:     e.Code,
		Message:  e.Message,
		Messages: e.Messages,
		Details:  e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Messages map[string]string `json:"messages,omitempty"`
	Details  map[string]any    `json:"details,omitempty"`
}

func New(kind Kind, code, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: statusFor(kind),
	}
}

func Wrap(err error, kind Kind, code, message string) *AppError {
	appErr := New(kind, code, message)
	appErr.Err = err
	return appErr
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithMessages attaches localized variants of the message. The English
// variant, when present, also becomes Message.
func (e *AppError) WithMessages(messages map[string]string) *AppError {
	e.Messages = messages
	if en, ok := messages[LangEN]; ok && en != "" {
		e.Message = en
	}
	return e
}

func Validation(code, message string) *AppError {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *AppError {
	return New(KindConflict, code, message)
}

func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message)
}

func InvalidInput(message string) *AppError {
	return New(KindInvalidInput, CodeInvalidInput, message)
}

func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

func Unavailable(service string) *AppError {
	return New(KindUnavailable, CodeUnavailable, fmt.Sprintf("%s is temporarily unavailable", service))
}

func Internal(message string, err error) *AppError {
	return Wrap(err, KindInternal, CodeInternal, message)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
