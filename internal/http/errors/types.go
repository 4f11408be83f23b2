// Package errors define el error estándar de la API y su serialización.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError error estándar de la API.
type AppError struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa, solo para logs
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError convierte cualquier error en AppError; lo desconocido es 500.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail retorna una copia con detail.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause retorna una copia con la causa.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// ─── Predefinidos ───

var (
	// ErrUnauthorized sin Code: el body es {"message": ...}, el contrato del
	// frontend existente.
	ErrUnauthorized = &AppError{
		Message:    "Unauthorized - invalid token",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrUserNotFound = &AppError{
		Code:       "USER_NOT_FOUND",
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrUserSyncFailed el provider no conoce al usuario.
	ErrUserSyncFailed = &AppError{
		Code:       "USER_SYNC_FAILED",
		Message:    "User not found and sync failed",
		HTTPStatus: http.StatusNotFound,
	}

	// ErrUpstreamLookup el provider falló; mismo mensaje, status distinto.
	ErrUpstreamLookup = &AppError{
		Code:       "UPSTREAM_LOOKUP_FAILED",
		Message:    "User not found and sync failed",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrIdentityConflict = &AppError{
		Code:       "IDENTITY_CONFLICT",
		Message:    "Account email is bound to a different identity",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal Server Error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrStoreMisconfigured = &AppError{
		Code:       "STORE_MISCONFIGURED",
		Message:    "Internal Server Error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// ErrClientClosedRequest el cliente cortó antes de la respuesta (499, convención nginx).
	ErrClientClosedRequest = &AppError{
		Code:       "CLIENT_CLOSED_REQUEST",
		Message:    "Client closed request",
		HTTPStatus: 499,
	}

	ErrTooManyRequests = &AppError{
		Code:       "TOO_MANY_REQUESTS",
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
)
