package service

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"flowershop/internal/apperr"
	"flowershop/internal/repository"
)

// lookup переводит ошибку поиска по id в NotFound или Internal
func lookup(err error, entity string, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// fieldErrors собирает ошибки валидации по полям
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) required(field, label, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, label+" is required")
	}
}

func (f fieldErrors) maxLen(field, label, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		f.add(field, label+" must be at most "+strconv.Itoa(max)+" characters")
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.ValidationFields(f)
}
