package models

import (
	"fmt"
	"net/http"
)

// ErrorKind классифицирует ошибку для клиента и для errors.Is.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindInvalidState         ErrorKind = "invalid_state"
	KindPermission           ErrorKind = "permission"
	KindDuplicateActiveOffer ErrorKind = "duplicate_active_offer"
	KindNotFound             ErrorKind = "not_found"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindInternal             ErrorKind = "internal"
)

// Сигнальные значения для сравнения через errors.Is.
var (
	ErrValidation           = &ErrorResponse{Kind: KindValidation}
	ErrInvalidState         = &ErrorResponse{Kind: KindInvalidState}
	ErrPermission           = &ErrorResponse{Kind: KindPermission}
	ErrDuplicateActiveOffer = &ErrorResponse{Kind: KindDuplicateActiveOffer}
	ErrNotFound             = &ErrorResponse{Kind: KindNotFound}
	ErrUnauthorized         = &ErrorResponse{Kind: KindUnauthorized}
)

// ErrorResponse описывает ошибку с кодом, видом и сообщением.
type ErrorResponse struct {
	Kind       ErrorKind         `json:"kind"`
	StatusCode int               `json:"-"`
	Message    string            `json:"reason"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(kind ErrorKind, statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message}
}

// NewValidationError создает ошибку валидации одного поля.
func NewValidationError(field, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       KindValidation,
		StatusCode: http.StatusBadRequest,
		Message:    fmt.Sprintf("%s: %s", field, message),
		Fields:     map[string]string{field: message},
	}
}

// NewValidationErrors создает ошибку валидации по набору полей.
func NewValidationErrors(fields map[string]string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       KindValidation,
		StatusCode: http.StatusBadRequest,
		Message:    "validation failed",
		Fields:     fields,
	}
}

// NewInvalidStateError сообщает, что сущность не в нужном исходном статусе.
func NewInvalidStateError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(KindInvalidState, http.StatusConflict, fmt.Sprintf(format, args...))
}

// NewPermissionError сообщает об отсутствии членства или роли в компании.
func NewPermissionError(format string, args ...any) *ErrorResponse {
	return NewErrorResponse(KindPermission, http.StatusForbidden, fmt.Sprintf(format, args...))
}

// NewDuplicateActiveOfferError сообщает, что у поставщика уже есть активное предложение.
func NewDuplicateActiveOfferError(requestID string) *ErrorResponse {
	return NewErrorResponse(KindDuplicateActiveOffer, http.StatusConflict,
		fmt.Sprintf("supplier already has an active offer on request %s", requestID))
}

// NewNotFoundError сообщает об отсутствии сущности.
func NewNotFoundError(entity, id string) *ErrorResponse {
	return NewErrorResponse(KindNotFound, http.StatusNotFound, fmt.Sprintf("%s %s not found", entity, id))
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Is сравнивает ошибки по виду, чтобы работал errors.Is(err, ErrInvalidState).
func (e *ErrorResponse) Is(target error) bool {
	t, ok := target.(*ErrorResponse)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
