package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOfferNotFound возвращается, если оффер не найден в репозитории.
	ErrOfferNotFound = errors.New("payment not found")
	// ErrOrderNotFound возвращается, если ордер отсутствует в списке оффера.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOfferVersionConflict сигнализирует о конфликте версий при сохранении оффера.
	ErrOfferVersionConflict = errors.New("offer version conflict")
	// ErrForbidden — попытка изменить статус ордера не владельцем оффера.
	ErrForbidden = errors.New("not access")
	// ErrInvalidPagination — некорректные параметры page/limit (< 1).
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	// ErrProfileLookup — профиль не получен от прокси (сервис недоступен или адрес неизвестен).
	ErrProfileLookup = errors.New("profile lookup failed")
	// ErrUnauthorized — подпись отсутствует или не прошла проверку.
	ErrUnauthorized = errors.New("invalid signature")
	// ErrInvalidStatus — значение статуса вне множества pending/paid/canceled.
	ErrInvalidStatus = errors.New("invalid order status")
)

// FieldError описывает одно нарушение схемы с привязкой к полю.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError агрегирует нарушения схемы; отдаётся клиенту списком полей.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

// NewValidationError собирает ошибку валидации из списка нарушений.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOfferVersionConflict)
}

// AsValidation извлекает ValidationError из цепочки ошибок.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
