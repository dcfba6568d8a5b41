package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeDatabaseError     ErrorCode = "DATABASE_ERROR"
)

// AppError — ошибка уровня приложения с HTTP статусом.
// Fields содержит пофилдовые сообщения для ошибок валидации.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Fields     map[string]string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с картой полей.
func Validation(message string, fields map[string]string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Fields:     fields,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidState, ErrCodeInsufficientFunds:
		return http.StatusBadRequest
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsInvalidState(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidState
}

var (
	ErrProjectNotFound   = New(ErrCodeNotFound, "проект не найден")
	ErrBidNotFound       = New(ErrCodeNotFound, "ставка не найдена")
	ErrPaymentNotFound   = New(ErrCodeNotFound, "платёж не найден")
	ErrWalletNotFound    = New(ErrCodeNotFound, "кошелёк не найден")
	ErrDisputeNotFound   = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound      = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized      = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden         = New(ErrCodeForbidden, "недостаточно прав")
	ErrInsufficientFunds = New(ErrCodeInsufficientFunds, "недостаточно средств на балансе")
	ErrDuplicateEscrow   = New(ErrCodeConflict, "escrow платёж по проекту уже существует")
)
