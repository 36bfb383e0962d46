// Package apperr — ошибки уровня приложения, различаемые по виду (Kind),
// а не по типу. HTTP-слой переводит вид в статус ответа.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindInvalidArgument
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// ValidationMessage — общий текст для ошибок валидации полей
const ValidationMessage = "Validation failed"

type Error struct {
	Kind    Kind
	Message string
	// Fields — ошибки по полям (только для KindValidation)
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.Fields)
	}
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound — "Product with id 7 not found"
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with id %v not found", entity, id)}
}

// Validation — нарушение бизнес-правила по одному полю
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: ValidationMessage, Fields: map[string]string{field: msg}}
}

// ValidationFields — несколько ошибок полей сразу (например, от биндинга запроса)
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: ValidationMessage, Fields: fields}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Internal оборачивает неклассифицированную ошибку (I/O, БД)
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается внутренней ошибкой
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is проверяет, что err — ошибка указанного вида
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldErrors возвращает ошибки полей, если они есть
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
