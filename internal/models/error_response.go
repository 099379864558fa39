package models

import (
	"errors"
	"net/http"
)

type ErrorKind string // Категория ошибки

const (
	KindInvalid      ErrorKind = "Invalid"      // Некорректный запрос
	KindUnauthorized ErrorKind = "Unauthorized" // Нет или неверный токен
	KindNotFound     ErrorKind = "NotFound"     // Предложение или объявление не найдено
	KindForbidden    ErrorKind = "Forbidden"    // Вызывающий не владеет компанией или объявлением
	KindInvalidState ErrorKind = "InvalidState" // Переход запрещен автоматом состояний
	KindConflict     ErrorKind = "Conflict"     // Проигрыш гонки с параллельным принятием
	KindInternal     ErrorKind = "Internal"     // Ошибка хранилища
)

var kindStatus = map[ErrorKind]int{
	KindInvalid:      http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindForbidden:    http.StatusForbidden,
	KindInvalidState: http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindInternal:     http.StatusInternalServerError,
}

// ErrorResponse описывает ошибку с категорией и сообщением.
type ErrorResponse struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"reason"`
}

// NewErrorResponse создает новую ошибку с категорией и сообщением.
func NewErrorResponse(kind ErrorKind, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:    kind,
		Message: message}
}

func NewInvalid(message string) *ErrorResponse   { return NewErrorResponse(KindInvalid, message) }
func NewNotFound(message string) *ErrorResponse  { return NewErrorResponse(KindNotFound, message) }
func NewForbidden(message string) *ErrorResponse { return NewErrorResponse(KindForbidden, message) }
func NewInvalidState(message string) *ErrorResponse {
	return NewErrorResponse(KindInvalidState, message)
}
func NewConflict(message string) *ErrorResponse { return NewErrorResponse(KindConflict, message) }

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// StatusCode возвращает HTTP-код для категории ошибки.
func (e *ErrorResponse) StatusCode() int {
	if code, ok := kindStatus[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// KindOf возвращает категорию ошибки; все неизвестные ошибки считаются внутренними.
func KindOf(err error) ErrorKind {
	var errResp *ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Kind
	}
	return KindInternal
}
