// Package nullable отличает в JSON-патчах три состояния поля:
// поле не передано, передано null, передано значение.
package nullable

import (
	"bytes"
	"encoding/json"
)

type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of — поле, явно переданное со значением
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null — поле, явно переданное как null
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present — поле передано и не null
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// Or возвращает значение, если оно передано, иначе def
func (f Field[T]) Or(def T) T {
	if f.Present() {
		return f.Value
	}
	return def
}
